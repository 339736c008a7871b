// Command plcsim simulates PLC ladder-logic programs on a fixed scan cycle.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/plcsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
