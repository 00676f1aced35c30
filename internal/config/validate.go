// validate.go checks a decoded Config for values the rest of the CLI cannot
// work with. All problems are collected rather than stopping at the first
// one, so a user fixing a config file sees every issue in one run.
package config

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-version"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// ValidationError represents a specific validation failure in a config file.
type ValidationError struct {
	// Field is the config key path that failed validation (e.g., "setup.minVersion").
	Field string

	// Message describes what's wrong with the value.
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation error: %s: %s", e.Field, e.Message)
}

// Validate returns every validation error found in cfg (empty = valid).
//
// Checks performed:
//   - format must be one of standard, minimal, full
//   - jobs must be at least 1
//   - publishers must not contain blank names
//   - setup.minVersion must parse as a version number
//   - setup.venv must not be blank
//   - setup.devPackages must not contain blank names
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if _, err := model.ParseFormatStyle(cfg.Format); err != nil {
		errs = append(errs, ValidationError{
			Field:   "format",
			Message: err.Error(),
		})
	}

	if cfg.Jobs < 1 {
		errs = append(errs, ValidationError{
			Field:   "jobs",
			Message: fmt.Sprintf("must be at least 1, got %d", cfg.Jobs),
		})
	}

	for i, p := range cfg.Publishers {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("publishers[%d]", i),
				Message: "publisher name must not be empty",
			})
		}
	}

	if _, err := version.NewVersion(cfg.Setup.MinVersion); err != nil {
		errs = append(errs, ValidationError{
			Field:   "setup.minVersion",
			Message: fmt.Sprintf("invalid version %q (expected e.g. \"3.7\")", cfg.Setup.MinVersion),
		})
	}

	if strings.TrimSpace(cfg.Setup.Venv) == "" {
		errs = append(errs, ValidationError{
			Field:   "setup.venv",
			Message: "virtual environment directory must not be empty",
		})
	}

	for i, p := range cfg.Setup.DevPackages {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("setup.devPackages[%d]", i),
				Message: "package name must not be empty",
			})
		}
	}

	return errs
}
