package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonsql/internal/store"
)

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	DB          string
	Driver      string
	Fingerprint string
}

// AuditResult lists audit records.
type AuditResult struct {
	Records []store.AuditRecord `json:"records"`
}

// String renders one record per line.
func (r AuditResult) String() string {
	if len(r.Records) == 0 {
		return "No audit records."
	}
	var b strings.Builder
	for i, rec := range r.Records {
		if i > 0 {
			b.WriteByte('\n')
		}
		if rec.Accepted() {
			fmt.Fprintf(&b, "%s  ok    %s (%d params)", rec.ID, rec.SQL, rec.ParamCount)
		} else {
			fmt.Fprintf(&b, "%s  %s  %s", rec.ID, rec.Code, rec.Reason)
		}
	}
	return b.String()
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "List recorded compilation outcomes",
		Long: `List the audit_log written by "jsonsql query --audit", oldest first.

Examples:
  jsonsql audit --db images.db
  jsonsql audit --db images.db --fingerprint <sha256>`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "database path or DSN")
	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|pgx)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only records for this request fingerprint")

	return cmd
}

func runAudit(ctx context.Context, opts *AuditOptions, cmd *cobra.Command) error {
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

	records, err := store.NewAuditor(s).Records(ctx, opts.Fingerprint)
	if err != nil {
		return f.Report(commandError(ErrCodeDatabase, "reading audit log", err))
	}
	return f.Success(AuditResult{Records: records})
}
