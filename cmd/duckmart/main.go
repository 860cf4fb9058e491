// Command duckmart is the CLI entry point.
package main

import (
	"os"

	"github.com/duckmart/duckmart/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
