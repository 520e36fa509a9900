package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/jsonsql/internal/ir"
	"github.com/roach88/jsonsql/internal/querysql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	PolicyFile  string
	Placeholder string
}

// CompileResult is the output of a successful compile.
type CompileResult struct {
	SQL         string `json:"sql"`
	Params      []any  `json:"params"`
	Fingerprint string `json:"fingerprint,omitempty"`
	PolicyHash  string `json:"policy_hash"`
}

// String renders the result for text output.
func (r CompileResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SQL:    %s\n", r.SQL)
	fmt.Fprintf(&b, "Params: %s\n", formatParams(r.Params))
	if r.Fingerprint != "" {
		fmt.Fprintf(&b, "Request: %s\n", r.Fingerprint)
	}
	fmt.Fprintf(&b, "Policy:  %s", r.PolicyHash)
	return b.String()
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [request|-]",
		Short: "Compile a JSON request to parameterized SQL",
		Long: `Compile a JSON request against a policy and print the SQL text and
its bound parameters. Nothing is executed.

The request is read from the argument when it starts with "{", from the
named file otherwise, and from stdin when the argument is "-" or absent.

Exit codes:
  0 - Request compiled
  1 - Request rejected by the policy
  2 - Command error (unreadable policy or request)

Examples:
  jsonsql compile --policy policy.yaml request.json
  jsonsql compile --policy policy.cue '{"query":"SELECT","items":["*"],"table":"images"}'
  cat request.json | jsonsql compile --policy policy.yaml --placeholder dollar`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			arg := ""
			if len(args) == 1 {
				arg = args[0]
			}
			return runCompile(opts, arg, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.PolicyFile, "policy", "", "policy file (.yaml, .json or .cue)")
	cmd.Flags().StringVar(&opts.Placeholder, "placeholder", "question", "placeholder style (question|dollar|colon|atp)")

	return cmd
}

func runCompile(opts *CompileOptions, arg string, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	style, err := querysql.ParsePlaceholderStyle(opts.Placeholder)
	if err != nil {
		return f.Report(commandError(ErrCodeGeneric, "invalid --placeholder", err))
	}

	lp, err := loadPolicy(opts.PolicyFile)
	if err != nil {
		return f.Report(err)
	}
	f.VerboseLog("Loaded policy %s (%s)", opts.PolicyFile, lp.Fingerprint)

	data, err := readRequest(arg, cmd.InOrStdin())
	if err != nil {
		return f.Report(err)
	}

	compiler := querysql.NewCompiler(lp.Policy, querysql.WithLogger(opts.logger()))
	stmt, err := compiler.CompileJSON(data)
	if err != nil {
		return reportRejection(f, err)
	}

	stmt, err = stmt.Rebind(style)
	if err != nil {
		return f.Report(commandError(ErrCodeGeneric, "rebinding placeholders", err))
	}

	return f.Success(CompileResult{
		SQL:         stmt.SQL,
		Params:      stmt.Params,
		Fingerprint: requestFingerprint(data),
		PolicyHash:  lp.Fingerprint,
	})
}

// reportRejection writes a compile rejection using its error code and
// returns an ExitFailure.
func reportRejection(f *OutputFormatter, err error) error {
	code := string(querysql.CodeOf(err))
	if code == "" {
		return f.Report(err)
	}
	reason := querysql.Reason(err)
	if outErr := f.Error(code, reason, nil); outErr != nil {
		return WrapExitError(ExitCommandError, "writing output", outErr)
	}
	return &ExitError{Code: ExitFailure, ErrCode: code, Message: reason, Err: err}
}

// formatParams renders parameters as a JSON array.
func formatParams(params []any) string {
	v, err := ir.FromGo(params)
	if err != nil {
		return fmt.Sprint(params)
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprint(params)
	}
	return string(data)
}
