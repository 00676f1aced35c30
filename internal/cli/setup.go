// Package cli: setup.go implements the "bbl2bib setup" command.
//
// The command is a thin layer over setup.Provisioner: it merges flags with
// the setup section of the configuration file, wires the real command
// runner and prompt, and reports the result.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/bbl2bib/internal/model"
	"github.com/shinji-kodama/bbl2bib/internal/prompt"
	"github.com/shinji-kodama/bbl2bib/internal/setup"
)

// setupFlags holds the flag values for the setup command.
type setupFlags struct {
	python     string // --python: interpreter to look up on PATH
	venv       string // --venv: virtual environment directory
	project    string // --project: project directory to install
	minVersion string // --min-version: oldest accepted interpreter
	dev        bool   // --dev: install developer tooling without asking
	noDev      bool   // --no-dev: skip developer tooling without asking
}

// NewSetupCommand creates the "setup" cobra command.
func NewSetupCommand() *cobra.Command {
	flags := &setupFlags{}

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Bootstrap a Python development environment for the project",
		Long: `Prepare a development environment in the project directory.

The command:
  - Checks that Python 3 (3.7 or newer by default) is on PATH
  - Creates a virtual environment, or reuses an existing one
  - Upgrades pip inside it
  - Installs the project in editable mode
  - Optionally installs development tools (pytest, black, flake8, mypy)

Any failing step stops the command with that step's exit status.

Examples:
  bbl2bib setup
  bbl2bib setup --venv .venv --no-dev
  bbl2bib setup --python python3.12 --min-version 3.10 --dev`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetup(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.python, "python", "", "Python interpreter to use (default: python3, then python)")
	cmd.Flags().StringVar(&flags.venv, "venv", "", "Virtual environment directory (default: venv)")
	cmd.Flags().StringVar(&flags.project, "project", "", "Project directory to install (default: current directory)")
	cmd.Flags().StringVar(&flags.minVersion, "min-version", "", "Minimum Python version (default: 3.7)")
	cmd.Flags().BoolVar(&flags.dev, "dev", false, "Install development dependencies without asking")
	cmd.Flags().BoolVar(&flags.noDev, "no-dev", false, "Skip development dependencies without asking")
	cmd.MarkFlagsMutuallyExclusive("dev", "no-dev")

	return cmd
}

// runSetup resolves options and runs the provisioner.
func runSetup(cmd *cobra.Command, flags *setupFlags) error {
	opts, err := setupOptions(flags)
	if err != nil {
		return err
	}

	// In JSON mode the human-readable progress moves to stderr so that
	// stdout carries only the result document.
	out := cmd.OutOrStdout()
	if IsJSONOutput() {
		out = cmd.ErrOrStderr()
	}

	p := &setup.Provisioner{
		Runner:  &setup.ExecRunner{Stdout: out, Stderr: cmd.ErrOrStderr()},
		Confirm: prompt.New(cmd.InOrStdin(), out).Confirm,
		Out:     out,
		Logger:  logger,
	}

	result, err := p.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(cmd.OutOrStdout(), result)
	}
	return nil
}

// setupOptions layers flags over the setup section of the configuration.
func setupOptions(flags *setupFlags) (setup.Options, error) {
	sc := cfg.Setup

	opts := setup.Options{
		Python:      firstNonEmpty(flags.python, sc.Python),
		VenvDir:     firstNonEmpty(flags.venv, sc.Venv),
		ProjectDir:  firstNonEmpty(flags.project, sc.Project, "."),
		DevPackages: sc.DevPackages,
	}

	minVersion := firstNonEmpty(flags.minVersion, sc.MinVersion)
	v, err := setup.ParseVersion(minVersion)
	if err != nil {
		return setup.Options{}, model.WrapCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("invalid minimum version %q", minVersion),
			err,
		)
	}
	opts.MinVersion = v

	switch {
	case flags.dev:
		opts.Dev = setup.DevInstall
	case flags.noDev:
		opts.Dev = setup.DevSkip
	default:
		opts.Dev = setup.DevAsk
	}

	return opts, nil
}

// firstNonEmpty returns the first non-empty value.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
