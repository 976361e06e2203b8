// Package main is the entry point for the tonearm CLI.
//
// Usage:
//
//	tonearm serve [--config file] [--addr host:port] [--data-dir dir]
package main

import (
	"fmt"
	"os"

	"github.com/tonearm/tonearm/cmd/tonearm/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
