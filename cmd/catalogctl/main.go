// Package main provides the entry point for the catalogctl CLI.
package main

import (
	"os"

	"github.com/arcade-catalog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
