// Package model defines the domain types and value objects for the
// bbl2bib CLI.
//
// This package contains pure data structures with no external dependencies.
// Bibliography entries (Entry, Field) are transient representations built by
// the bbl parser and consumed by the bib writer; nothing is persisted besides
// the generated .bib files themselves.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
