package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// versionInfo is the --json form of the version command.
type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Date      string `json:"date"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// versionString is the one-line form shared by "bbl2bib version" and
// "bbl2bib --version".
func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}

// NewVersionCommand creates the "version" cobra command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), versionInfo{
					Version:   Version,
					Commit:    Commit,
					Date:      Date,
					GoVersion: runtime.Version(),
					Platform:  runtime.GOOS + "/" + runtime.GOARCH,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bbl2bib %s\n", versionString())
			return nil
		},
	}
}
