package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonsql/internal/policy"
	"github.com/roach88/jsonsql/internal/store"
)

// IntrospectOptions holds flags for the introspect command.
type IntrospectOptions struct {
	*RootOptions
	DB     string
	Driver string
}

// IntrospectResult is a policy derived from a database schema.
type IntrospectResult struct {
	YAML    string   `json:"yaml"`
	Skipped []string `json:"skipped,omitempty"`
}

// String renders the policy YAML, listing skipped columns as comments.
func (r IntrospectResult) String() string {
	var b strings.Builder
	for _, col := range r.Skipped {
		fmt.Fprintf(&b, "# skipped %s: no scalar kind for its declared type\n", col)
	}
	b.WriteString(strings.TrimRight(r.YAML, "\n"))
	return b.String()
}

// NewIntrospectCommand creates the introspect command.
func NewIntrospectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IntrospectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "introspect [table...]",
		Short: "Generate a read-only policy from a database schema",
		Long: `Read table and column declarations from a database and print a
starting policy: SELECT over "*" with WHERE filtering, each table limited
to its own columns and each column typed from its declared SQL type.

Without arguments every user table is included.

Examples:
  jsonsql introspect --db images.db > policy.yaml
  jsonsql introspect --db images.db images users
  jsonsql introspect --driver pgx --db postgres://localhost/app`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIntrospect(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path or DSN")
	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|pgx)")

	return cmd
}

func runIntrospect(ctx context.Context, opts *IntrospectOptions, tables []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	s, err := openStore(ctx, opts.Driver, opts.DB)
	if err != nil {
		return f.Report(err)
	}
	defer s.Close()

	infos, err := s.Introspect(ctx, tables...)
	if err != nil {
		return f.Report(commandError(ErrCodeDatabase, "reading schema", err))
	}
	f.VerboseLog("Read %d table(s)", len(infos))

	cfg, skipped, err := policy.ConfigFromSchema(infos)
	if err != nil {
		return f.Report(commandError(ErrCodePolicy, "deriving policy", err))
	}
	if _, err := policy.New(cfg); err != nil {
		return f.Report(commandError(ErrCodePolicy, "derived policy is invalid", err))
	}

	data, err := cfg.Encode()
	if err != nil {
		return f.Report(commandError(ErrCodePolicy, "encoding policy", err))
	}
	return f.Success(IntrospectResult{YAML: string(data), Skipped: skipped})
}
