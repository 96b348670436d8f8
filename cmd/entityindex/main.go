// Package main provides the entry point for the entityindex CLI.
package main

import (
	"os"

	"github.com/jonwraymond/entityindex/cmd/entityindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
