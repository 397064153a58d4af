// Command hasp is a package installer whose core value is a durable,
// crash-safe, multi-process-safe install-transaction engine.
package main

import (
	"os"

	"github.com/corvid-labs/hasp/internal/cli"
)

func main() {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		code := cli.GetExitCode(err)
		os.Exit(code)
	}
}
