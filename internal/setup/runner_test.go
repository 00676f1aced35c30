package setup

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/bbl2bib/internal/model"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner_Output(t *testing.T) {
	requireShell(t)

	var stream bytes.Buffer
	r := &ExecRunner{Stdout: &stream}

	out, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo hello")
	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
	assert.Equal(t, "hello\n", stream.String())
}

func TestExecRunner_ExitCodePropagates(t *testing.T) {
	requireShell(t)

	r := &ExecRunner{}
	_, err := r.Run(context.Background(), t.TempDir(), "sh", "-c", "echo first >&2; echo 'the real error' >&2; exit 3")
	require.Error(t, err)

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitCode(3), cliErr.Code)
	// Only the last stderr line is kept.
	assert.True(t, strings.HasSuffix(cliErr.Message, "failed: the real error"), cliErr.Message)
}

func TestExecRunner_MissingCommand(t *testing.T) {
	r := &ExecRunner{}
	_, err := r.Run(context.Background(), t.TempDir(), "bbl2bib-definitely-not-a-command")

	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, model.ExitGeneralError, cliErr.Code)
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "only", lastLine("only"))
	assert.Equal(t, "ERROR: boom", lastLine("Traceback\n  File x\nERROR: boom"))
}

func TestExecRunner_OutputDoesNotStream(t *testing.T) {
	requireShell(t)

	var stream, errStream bytes.Buffer
	r := &ExecRunner{Stdout: &stream, Stderr: &errStream}

	out, err := r.Output(context.Background(), t.TempDir(), "sh", "-c", "echo 3.11.4; echo warn >&2")
	require.NoError(t, err)
	assert.Equal(t, "3.11.4\n", out)
	assert.Empty(t, stream.String())
	assert.Empty(t, errStream.String())
}
