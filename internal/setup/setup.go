package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/hashicorp/go-version"
	"go.uber.org/zap"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// DefaultInterpreters are tried in order when no interpreter is configured.
var DefaultInterpreters = []string{"python3", "python"}

// versionScript prints the running interpreter's version as "X.Y.Z". It is
// valid in both Python 2 and 3, so a Python 2 "python" on PATH is reported as
// too old instead of failing with a syntax error.
const versionScript = "import sys; print('%d.%d.%d' % tuple(sys.version_info[:3]))"

// DevMode selects how the optional developer-tooling step is decided.
type DevMode int

const (
	// DevAsk prompts the user (the default).
	DevAsk DevMode = iota

	// DevInstall installs the tooling without asking.
	DevInstall

	// DevSkip skips the step without asking.
	DevSkip
)

// Options configures one provisioning run.
type Options struct {
	// Python is the interpreter to look up. Empty means DefaultInterpreters.
	Python string

	// ProjectDir is the project root installed in editable mode.
	ProjectDir string

	// VenvDir is the virtual environment directory. Relative paths are
	// resolved against ProjectDir.
	VenvDir string

	// MinVersion is the oldest accepted interpreter version. Nil accepts any.
	MinVersion *version.Version

	// DevPackages are installed by the optional step.
	DevPackages []string

	// Dev decides whether the optional step runs.
	Dev DevMode
}

// Result describes what a successful run did.
type Result struct {
	Interpreter  string `json:"interpreter"`
	Version      string `json:"version"`
	VenvPath     string `json:"venvPath"`
	VenvCreated  bool   `json:"venvCreated"`
	DevInstalled bool   `json:"devInstalled"`
}

// Provisioner runs the bootstrap sequence.
type Provisioner struct {
	// Runner executes external commands.
	Runner Runner

	// LookPath resolves an executable name on PATH. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)

	// Confirm asks a yes/no question. Required when Options.Dev is DevAsk.
	Confirm func(question string) (bool, error)

	// Out receives the human-readable progress and the final instructions.
	Out io.Writer

	// Logger receives debug details about each step.
	Logger *zap.Logger
}

// Run executes the full sequence. Every failure is a *model.CLIError.
func (p *Provisioner) Run(ctx context.Context, opts Options) (*Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	out := p.Out
	if out == nil {
		out = io.Discard
	}

	projectDir, err := filepath.Abs(opts.ProjectDir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to resolve project directory", err)
	}

	fmt.Fprintln(out, "Setting up bbl2bib development environment...")

	// Step 1: find the interpreter.
	interpreter, err := p.findInterpreter(opts.Python)
	if err != nil {
		return nil, err
	}
	logger.Debug("Found interpreter", zap.String("path", interpreter))

	// Step 2: check its version.
	found, err := p.checkVersion(ctx, projectDir, interpreter, opts.MinVersion)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(out, "Found Python %s (%s)\n", found, interpreter)

	result := &Result{Interpreter: interpreter, Version: found.String()}

	// Step 3: create or reuse the virtual environment.
	venvDir := opts.VenvDir
	if !filepath.IsAbs(venvDir) {
		venvDir = filepath.Join(projectDir, venvDir)
	}
	result.VenvPath = venvDir

	created, err := p.ensureVenv(ctx, projectDir, interpreter, venvDir)
	if err != nil {
		return nil, err
	}
	result.VenvCreated = created
	if created {
		fmt.Fprintf(out, "Created virtual environment at %s\n", venvDir)
	} else {
		fmt.Fprintf(out, "Virtual environment already exists at %s, reusing it\n", venvDir)
	}

	venvPython := VenvPython(venvDir)

	// Step 4: upgrade pip.
	fmt.Fprintln(out, "Upgrading pip...")
	if _, err := p.Runner.Run(ctx, projectDir, venvPython, "-m", "pip", "install", "--upgrade", "pip"); err != nil {
		return nil, err
	}

	// Step 5: editable install of the project.
	fmt.Fprintln(out, "Installing project in editable mode...")
	if _, err := p.Runner.Run(ctx, projectDir, venvPython, "-m", "pip", "install", "-e", "."); err != nil {
		return nil, err
	}

	// Step 6: optional developer tooling.
	install, err := p.wantDev(opts)
	if err != nil {
		return nil, err
	}
	if install {
		fmt.Fprintf(out, "Installing development dependencies: %s\n", strings.Join(opts.DevPackages, " "))
		args := append([]string{"-m", "pip", "install"}, opts.DevPackages...)
		if _, err := p.Runner.Run(ctx, projectDir, venvPython, args...); err != nil {
			return nil, err
		}
		result.DevInstalled = true
	} else {
		logger.Debug("Skipping development dependencies")
	}

	// Step 7: usage instructions.
	printInstructions(out, venvDir)
	return result, nil
}

// findInterpreter returns the absolute path of the first interpreter found.
func (p *Provisioner) findInterpreter(configured string) (string, error) {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	candidates := DefaultInterpreters
	if configured != "" {
		candidates = []string{configured}
	}

	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			return path, nil
		}
	}

	return "", model.NewCLIError(
		model.ExitGeneralError,
		fmt.Sprintf("Python 3 is not installed or not on PATH (looked for %s)", strings.Join(candidates, ", ")),
	)
}

// checkVersion queries the interpreter's version and enforces the minimum.
// The query's output is captured, not shown to the user.
func (p *Provisioner) checkVersion(ctx context.Context, dir, interpreter string, minimum *version.Version) (*version.Version, error) {
	output, err := p.Runner.Output(ctx, dir, interpreter, "-c", versionScript)
	if err != nil {
		return nil, err
	}

	found, err := ParseVersion(strings.TrimSpace(output))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to determine Python version", err)
	}

	if minimum != nil && found.LessThan(minimum) {
		return nil, model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("Python %s or higher is required (found %s)", minimum.Original(), found),
		)
	}
	return found, nil
}

// ensureVenv creates venvDir unless it already exists. It reports whether
// the directory was created by this call.
//
// The existence check and the creation are not atomic; two concurrent
// setups in the same project may both try to create the environment.
func (p *Provisioner) ensureVenv(ctx context.Context, projectDir, interpreter, venvDir string) (bool, error) {
	info, err := os.Stat(venvDir)
	switch {
	case err == nil && info.IsDir():
		return false, nil
	case err == nil:
		return false, model.NewCLIError(
			model.ExitGeneralError,
			fmt.Sprintf("%s exists but is not a directory", venvDir),
		)
	case !errors.Is(err, os.ErrNotExist):
		return false, model.WrapCLIError(model.ExitGeneralError, "failed to inspect virtual environment directory", err)
	}

	if _, err := p.Runner.Run(ctx, projectDir, interpreter, "-m", "venv", venvDir); err != nil {
		return false, err
	}
	return true, nil
}

// wantDev decides the optional step according to opts.Dev.
func (p *Provisioner) wantDev(opts Options) (bool, error) {
	if len(opts.DevPackages) == 0 {
		return false, nil
	}

	switch opts.Dev {
	case DevInstall:
		return true, nil
	case DevSkip:
		return false, nil
	}

	if p.Confirm == nil {
		return false, nil
	}
	yes, err := p.Confirm("Install development dependencies? (y/N): ")
	if err != nil {
		return false, model.WrapCLIError(model.ExitGeneralError, "failed to read answer", err)
	}
	return yes, nil
}

// VenvPython returns the interpreter path inside a virtual environment.
func VenvPython(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "python.exe")
	}
	return filepath.Join(venvDir, "bin", "python")
}

// activateCommand returns the shell command that activates venvDir.
func activateCommand(venvDir string) string {
	if runtime.GOOS == "windows" {
		return filepath.Join(venvDir, "Scripts", "activate")
	}
	return "source " + filepath.Join(venvDir, "bin", "activate")
}

// printInstructions writes the closing banner and usage hints.
func printInstructions(out io.Writer, venvDir string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "==========================================")
	fmt.Fprintln(out, "Setup Complete!")
	fmt.Fprintln(out, "==========================================")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To activate the virtual environment, run:")
	fmt.Fprintf(out, "  %s\n", activateCommand(venvDir))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Then convert a bibliography with:")
	fmt.Fprintln(out, "  bbl2bib convert input.bbl")
	fmt.Fprintln(out, "  bbl2bib convert input.bbl -o output.bib")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "To deactivate, run:")
	fmt.Fprintln(out, "  deactivate")
}
