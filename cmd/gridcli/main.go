// Package main is the entry point for the gridcli binary.
package main

import (
	"os"

	cli "duck-grid/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
