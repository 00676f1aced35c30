// Package cli implements the cobra-based CLI commands for bbl2bib.
//
// Each subcommand (convert, setup, version) is defined in its own file
// within this package. This file defines the root command that serves as
// the parent for all subcommands, resolves the configuration file, builds
// the logger, and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shinji-kodama/bbl2bib/internal/config"
	"github.com/shinji-kodama/bbl2bib/internal/logging"
	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// Global flag variables shared across all subcommands.
// These are bound to cobra persistent flags on the root command,
// which makes them available to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	// When true, the command result is printed as JSON on stdout and log
	// lines move to stderr so stdout stays machine-readable.
	jsonOutput bool

	// verbose enables debug logging with timestamps.
	verbose bool

	// configPath is an explicit config file given with --config.
	// When empty, the working directory is searched (see config.Find).
	configPath string
)

// Per-invocation state prepared by the root command's PersistentPreRunE
// before any subcommand runs.
var (
	// cfg is the effective configuration (defaults layered with the file).
	cfg = config.Default()

	// logger is the zap logger every subcommand reports progress through.
	logger = zap.NewNop()
)

// Version, Commit, and Date are set at build time via ldflags.
// They are injected from the main package to display version information.
var (
	// Version is the semantic version of the binary (e.g., "1.0.0").
	Version = "dev"

	// Commit is the Git commit hash the binary was built from.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
// This is the entry point for the entire CLI application.
//
// The root command itself does not perform any action. It provides help
// text and global flags, and prepares the configuration and logger used by
// the subcommands (convert, setup, version).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bbl2bib",
		Short: "Convert LaTeX .bbl bibliographies back to BibTeX .bib files",
		Long: `bbl2bib reconstructs BibTeX databases from the .bbl files LaTeX and BibTeX
generate, for documents whose original .bib file has been lost.

Fields are recovered heuristically from the formatted bibliography text:
author, title, year, pages, volume, number, DOI, URL, ISBN, journal or
booktitle, school or institution, and publisher.

The setup command bootstraps a development environment for a project.`,

		// SilenceUsage prevents cobra from printing usage on every error.
		// We handle error output ourselves for cleaner UX.
		SilenceUsage: true,

		// SilenceErrors prevents cobra from printing errors automatically.
		// We format errors ourselves (text or JSON based on --json flag).
		SilenceErrors: true,

		// Version is displayed when --version flag is used.
		Version: versionString(),

		// PersistentPreRunE runs before every subcommand. Loading the config
		// here means a broken config file fails fast, before any work.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initRuntime(cmd)
		},
	}

	// PersistentFlags are inherited by all subcommands. Any flag defined
	// here is automatically available in every subcommand without
	// re-declaration.
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: .bbl2bib.{yaml,yml,json,jsonc} in the working directory)")

	// Register subcommands. Each subcommand is defined in its own file
	// (convert.go, setup.go, version.go) and returns a *cobra.Command.
	rootCmd.AddCommand(NewConvertCommand())
	rootCmd.AddCommand(NewSetupCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// initRuntime builds the logger and resolves the configuration file.
func initRuntime(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		out = cmd.ErrOrStderr()
	}
	logger = logging.New(out, logging.Options{
		Verbose: verbose,
		Color:   logging.IsTerminal(out),
	})

	cwd, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	resolved, path, err := config.Resolve(configPath, cwd)
	if err != nil {
		return err
	}
	cfg = resolved
	if path != "" {
		logger.Debug("Loaded config file", zap.String("path", path))
	}
	return nil
}

// Execute runs the root command and handles exit codes.
// This is the main entry point called from main.go.
//
// It inspects errors returned by cobra commands and translates them
// into appropriate OS exit codes. CLIError types carry their own
// exit codes; other errors default to exit code 1.
func Execute(rootCmd *cobra.Command) {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		var cliErr *model.CLIError
		if errors.As(err, &cliErr) {
			printError(os.Stderr, cliErr.Message, cliErr.Err)
		} else {
			printError(os.Stderr, err.Error(), nil)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error returned by a command to a process exit status.
// CLIErrors anywhere in the chain carry their own code; any other error
// is a general failure.
func exitCode(err error) int {
	if err == nil {
		return int(model.ExitSuccess)
	}
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return int(cliErr.Code)
	}
	return int(model.ExitGeneralError)
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag.
func printError(w io.Writer, message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		// Errors go to stderr even in JSON mode, because stdout is
		// reserved for successful command output.
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(w, string(data))
	} else {
		// Text format: "Error: <message>" on stderr.
		if underlying != nil {
			fmt.Fprintf(w, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(w, "Error: %s\n", message)
		}
	}
}

// printJSON writes v as indented JSON to w. Subcommands use it for their
// --json output.
func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to encode JSON output", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// IsJSONOutput returns whether the --json flag is set.
// Subcommands use this to decide their output format.
func IsJSONOutput() bool {
	return jsonOutput
}
