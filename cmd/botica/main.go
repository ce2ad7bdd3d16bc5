// botica finds natural-product catalog rows for a free-text need.
// Single binary: in-process lookups, or a daemon serving a Unix socket and
// a localhost HTTP API.
package main

import (
	"os"

	"github.com/corey/botica/cmd/botica/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(cmd.ExitCode(err))
	}
}
