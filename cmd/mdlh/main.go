// Package main is the entrypoint for the mdlh CLI.
package main

import (
	"os"

	"github.com/metalake-labs/mdlh/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
