package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/querysql"
	"github.com/roach88/jsonsql/internal/store"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	PolicyFile string
	DB         string
	Driver     string
	Audit      bool
}

// QueryResult is the output of an executed request.
type QueryResult struct {
	SQL     string           `json:"sql"`
	Params  []any            `json:"params"`
	Rows    []map[string]any `json:"rows"`
	AuditID string           `json:"audit_id,omitempty"`

	rows []ir.IRObject
}

// String renders the rows one canonical JSON object per line.
func (r QueryResult) String() string {
	var b strings.Builder
	for _, row := range r.rows {
		data, err := ir.MarshalCanonical(row)
		if err != nil {
			fmt.Fprintf(&b, "%v\n", row)
			continue
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "(%d rows)", len(r.rows))
	return b.String()
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [request|-]",
		Short: "Compile a JSON request and run it against a database",
		Long: `Compile a JSON request against a policy, then execute the statement
with its parameters bound by the database driver.

With --audit, the outcome (accepted or rejected) is appended to the
database's audit_log table. Parameter values are never logged.

Exit codes:
  0 - Request compiled and executed
  1 - Request rejected by the policy
  2 - Command error (unreadable policy, database error)

Examples:
  jsonsql query --policy policy.yaml --db images.db request.json
  jsonsql query --policy policy.yaml --driver pgx --db postgres://localhost/app -`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runQuery(cmd.Context(), opts, arg, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyFile, "policy", "", "policy file (.yaml, .json or .cue)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "database path or DSN")
	cmd.Flags().StringVar(&opts.Driver, "driver", store.DriverSQLite, "database driver (sqlite3|pgx)")
	cmd.Flags().BoolVar(&opts.Audit, "audit", false, "record the outcome in audit_log")

	return cmd
}

func runQuery(ctx context.Context, opts *QueryOptions, arg string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	lp, err := loadPolicy(opts.PolicyFile)
	if err != nil {
		return f.Report(err)
	}
	data, err := readRequest(arg, cmd.InOrStdin())
	if err != nil {
		return f.Report(err)
	}

	s, err := openStore(ctx, opts.Driver, opts.DB)
	if err != nil {
		return f.Report(err)
	}
	defer s.Close()
	f.VerboseLog("Opened %s database %s", s.Driver(), opts.DB)

	compiler := querysql.NewCompiler(lp.Policy, querysql.WithLogger(opts.logger()))
	stmt, compileErr := compiler.CompileJSON(data)

	var auditID string
	if opts.Audit {
		rec, err := store.NewAuditor(s).Record(ctx, requestFingerprint(data), lp.Fingerprint, stmt, compileErr)
		if err != nil {
			return f.Report(commandError(ErrCodeDatabase, "writing audit record", err))
		}
		auditID = rec.ID
		f.VerboseLog("Audit record %s", auditID)
	}

	if compileErr != nil {
		return reportRejection(f, compileErr)
	}

	rows, err := s.Execute(ctx, stmt)
	if err != nil {
		return f.Report(commandError(ErrCodeDatabase, "executing query", err))
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = ir.ToGo(row).(map[string]any)
	}
	return f.Success(QueryResult{
		SQL:     stmt.SQL,
		Params:  stmt.Params,
		Rows:    out,
		AuditID: auditID,
		rows:    rows,
	})
}
