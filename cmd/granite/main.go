// granite is the command-line client for the risk engine API.
package main

import (
	"fmt"
	"os"

	"github.com/granite-grc/granite/internal/config"
	"github.com/granite-grc/granite/internal/interfaces/cli"
)

func main() {
	root := cli.NewRootCommand(config.Version)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
