// Command scentbox runs the fragrance survey, recommendation and sample box
// engines from the command line or as a loopback HTTP service.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/scentbox/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
