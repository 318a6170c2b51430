// Package main provides the healthdw CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/healthdw/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
