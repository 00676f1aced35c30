package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// Default values applied when neither the config file nor a flag sets them.
const (
	DefaultJobs       = 4
	DefaultVenv       = "venv"
	DefaultMinVersion = "3.7"
)

// DefaultDevPackages is the developer tooling installed by "bbl2bib setup"
// when the user accepts the optional step.
var DefaultDevPackages = []string{"pytest", "black", "flake8", "mypy"}

// FileNames lists the config file names searched for in the working
// directory, in priority order.
var FileNames = []string{
	".bbl2bib.yaml",
	".bbl2bib.yml",
	".bbl2bib.json",
	".bbl2bib.jsonc",
}

// Config is the full set of user-tunable settings.
//
// The same struct is decoded from YAML and from JSON, so every field carries
// both tags. Field names use camelCase in both syntaxes.
type Config struct {
	// Format is the default output style for convert (standard/minimal/full).
	Format string `yaml:"format" json:"format"`

	// Overwrite replaces existing .bib files without prompting.
	Overwrite bool `yaml:"overwrite" json:"overwrite"`

	// Jobs bounds how many input files are parsed concurrently.
	Jobs int `yaml:"jobs" json:"jobs"`

	// Publishers extends the parser's built-in list of known publishers.
	Publishers []string `yaml:"publishers" json:"publishers"`

	// Setup holds settings for the environment bootstrap command.
	Setup SetupConfig `yaml:"setup" json:"setup"`
}

// SetupConfig configures "bbl2bib setup".
type SetupConfig struct {
	// Python is the interpreter to look up on PATH. Empty means
	// "python3, then python".
	Python string `yaml:"python" json:"python"`

	// Venv is the virtual environment directory, relative to Project.
	Venv string `yaml:"venv" json:"venv"`

	// Project is the directory installed in editable mode.
	Project string `yaml:"project" json:"project"`

	// MinVersion is the minimum accepted interpreter version ("3.7").
	MinVersion string `yaml:"minVersion" json:"minVersion"`

	// DevPackages are installed when the optional step is accepted.
	DevPackages []string `yaml:"devPackages" json:"devPackages"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Format: model.StyleStandard.String(),
		Jobs:   DefaultJobs,
		Setup: SetupConfig{
			Venv:        DefaultVenv,
			Project:     ".",
			MinVersion:  DefaultMinVersion,
			DevPackages: append([]string(nil), DefaultDevPackages...),
		},
	}
}

// Load reads the config file at path and layers it over Default().
//
// The syntax is chosen by file extension: .yaml/.yml use YAML, everything
// else is treated as JSONC. Unknown keys are rejected in both syntaxes so
// that typos surface instead of being silently ignored.
//
// Returns a CLIError with ExitInputNotFound if the file does not exist and
// ExitParseError if it cannot be parsed or fails validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, model.WrapCLIError(
				model.ExitInputNotFound,
				fmt.Sprintf("config file not found: %s", path),
				err,
			)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitParseError,
			fmt.Sprintf("failed to parse config file %s", path),
			err,
		)
	}

	if verrs := Validate(cfg); len(verrs) > 0 {
		joined := make([]error, 0, len(verrs))
		for i := range verrs {
			joined = append(joined, &verrs[i])
		}
		return nil, model.WrapCLIError(
			model.ExitParseError,
			fmt.Sprintf("invalid config file %s", path),
			errors.Join(joined...),
		)
	}

	return cfg, nil
}

// decode fills cfg from data according to the file extension.
func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty YAML document decodes to io.EOF; treat it as "no overrides".
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	default:
		// Strip comments and trailing commas first, then decode strictly.
		clean := jsonc.ToJSON(data)
		if len(bytes.TrimSpace(clean)) == 0 {
			return nil
		}
		dec := json.NewDecoder(bytes.NewReader(clean))
		dec.DisallowUnknownFields()
		return dec.Decode(cfg)
	}
}

// Find returns the path of the first config file present in dir, or an
// empty string when there is none. A missing config file is not an error.
func Find(dir string) string {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		// os.Stat is enough here; the file is read later by Load.
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

// Resolve returns the effective configuration and the path it was loaded
// from. An explicit path must exist; otherwise dir is searched and defaults
// are returned when nothing is found (with an empty path).
func Resolve(explicit, dir string) (*Config, string, error) {
	path := explicit
	if path == "" {
		path = Find(dir)
	}
	if path == "" {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
