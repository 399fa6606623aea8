package main

import (
	"os"

	"github.com/wonny/factorlens/cmd/factorlens/commands"
)

// main is the entry point for the factorlens CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
