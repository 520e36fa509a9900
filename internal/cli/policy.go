package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PolicyResult is a validated policy in normalized form.
type PolicyResult struct {
	File        string `json:"file"`
	Fingerprint string `json:"fingerprint"`
	YAML        string `json:"yaml"`
}

// String renders the normalized YAML under a fingerprint comment.
func (r PolicyResult) String() string {
	return fmt.Sprintf("# %s\n# fingerprint: %s\n%s", r.File, r.Fingerprint, strings.TrimRight(r.YAML, "\n"))
}

// NewPolicyCommand creates the policy command.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy <file>",
		Short: "Validate a policy file",
		Long: `Validate a policy file and print it normalized (aliases canonicalized,
lists sorted) under the fingerprint that "jsonsql query --audit" records.

Examples:
  jsonsql policy policy.yaml
  jsonsql policy policy.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPolicy(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runPolicy(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	lp, err := loadPolicy(path)
	if err != nil {
		return f.Report(err)
	}

	data, err := lp.Policy.Config().Encode()
	if err != nil {
		return f.Report(commandError(ErrCodePolicy, "encoding policy", err))
	}

	return f.Success(PolicyResult{
		File:        path,
		Fingerprint: lp.Fingerprint,
		YAML:        string(data),
	})
}
