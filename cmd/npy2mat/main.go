// Command npy2mat converts a directory of NumPy .npy arrays into MATLAB .mat
// files, one output per input, each holding a single variable.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
)

// version and commit are set at build time via -ldflags (e.g. Makefile).
var (
	version = "1.0.0-dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run executes the command tree and maps the result onto an exit code:
// 0 when the batch completed (whatever its per-file outcomes), 1 when the
// invocation or config was invalid or the source could not be listed.
func run(args []string) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "npy2mat: %v\n", err)
			for _, hint := range errors.GetAllHints(err) {
				fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
			}
		}
		return 1
	}
	return 0
}
