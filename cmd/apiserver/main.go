// Command apiserver is the container entry point for the HTTP API.  It is
// equivalent to "medkg serve" and accepts the same global flags.
package main

import (
	"os"

	"github.com/turtacn/MedKG-Intelligence/internal/interfaces/cli"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.GitCommit = commit
	cli.BuildDate = buildDate

	root := cli.NewRootCommand()
	root.SetArgs(append([]string{"serve"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		cli.PrintError(root, err)
		os.Exit(1)
	}
}

//Personal.AI order the ending
