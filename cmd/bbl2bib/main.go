// Package main is the entry point for the bbl2bib CLI.
//
// This binary converts LaTeX .bbl bibliographies back to BibTeX .bib files
// and bootstraps development environments. It delegates all functionality
// to the internal/cli package, which defines cobra commands.
//
// Build-time variables (version, commit, date) are injected via ldflags,
// e.g. -ldflags "-X main.version=1.2.0". During development they default
// to "dev", "none", and "unknown" respectively.
package main

import (
	"github.com/shinji-kodama/bbl2bib/internal/cli"
)

// version, commit, and date are set at build time via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Inject build-time version info into the CLI package.
	cli.Version = version
	cli.Commit = commit
	cli.Date = date

	// Create the root command with all subcommands registered,
	// then execute it. Execute handles error formatting and exit codes.
	rootCmd := cli.NewRootCommand()
	cli.Execute(rootCmd)
}
