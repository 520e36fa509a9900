// Command jsonsql compiles whitelisted JSON query descriptions into
// parameterized SQL.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/jsonsql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
