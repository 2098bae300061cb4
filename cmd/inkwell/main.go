package main

import (
	"os"

	"inkwell/cmd/inkwell/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// Errors are printed by the printer package with color formatting.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
