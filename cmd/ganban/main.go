// Command ganban is a task board stored as markdown on a git branch.
package main

import (
	"os"

	"github.com/ganban/ganban/internal/cli"
	"github.com/ganban/ganban/internal/errors"
)

func main() {
	err := cli.Run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		errors.Print(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}
