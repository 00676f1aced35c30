package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

// Runner executes an external command in dir and returns its standard output.
//
// A command that exits non-zero must be reported as a *model.CLIError whose
// Code is the command's exit status, so the CLI can exit with it.
type Runner interface {
	// Run executes the command and shows its output to the user.
	Run(ctx context.Context, dir, name string, args ...string) (string, error)

	// Output executes the command and only captures its output.
	Output(ctx context.Context, dir, name string, args ...string) (string, error)
}

// ExecRunner runs commands with os/exec.
//
// Output is captured and, when Stdout/Stderr are set, also streamed to them
// so long-running installs show progress.
type ExecRunner struct {
	// Stdout receives a copy of the command's standard output. Optional.
	Stdout io.Writer

	// Stderr receives a copy of the command's standard error. Optional.
	Stderr io.Writer
}

// Run executes name with args in dir.
//
// On failure the returned CLIError carries the child's exit status and the
// trimmed standard error text, which is usually the most useful diagnostic
// pip and venv produce.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (string, error) {
	return run(ctx, r.Stdout, r.Stderr, dir, name, args...)
}

// Output is like Run but never streams, for queries whose result the caller
// reports itself.
func (r *ExecRunner) Output(ctx context.Context, dir, name string, args ...string) (string, error) {
	return run(ctx, nil, nil, dir, name, args...)
}

func run(ctx context.Context, streamOut, streamErr io.Writer, dir, name string, args ...string) (string, error) {
	// #nosec G204 -- commands and arguments are assembled by this package
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = tee(&stdout, streamOut)
	cmd.Stderr = tee(&stderr, streamErr)

	if err := cmd.Run(); err != nil {
		message := fmt.Sprintf("%s %s failed", name, strings.Join(args, " "))
		if stderrStr := strings.TrimSpace(stderr.String()); stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, lastLine(stderrStr))
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", model.WrapExitCode(exitErr.ExitCode(), message, err)
		}
		return "", model.WrapCLIError(model.ExitGeneralError, message, err)
	}

	return stdout.String(), nil
}

// tee returns w, or a writer duplicating into w and extra when extra is set.
func tee(w io.Writer, extra io.Writer) io.Writer {
	if extra == nil {
		return w
	}
	return io.MultiWriter(w, extra)
}

// lastLine returns the final line of s. Tools such as pip print long
// tracebacks where only the last line states the actual error.
func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
