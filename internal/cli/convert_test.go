package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shinji-kodama/bbl2bib/internal/bbl"
	"github.com/shinji-kodama/bbl2bib/internal/bib"
	"github.com/shinji-kodama/bbl2bib/internal/model"
	"github.com/shinji-kodama/bbl2bib/internal/prompt"
)

// knuthBBL is a one-entry bibliography in the plain style.
const knuthBBL = `\begin{thebibliography}{1}

\bibitem{knuth1984}
D.~E. Knuth.
\newblock Literate programming.
\newblock {\em The Computer Journal}, 27(2):97--111, 1984.

\end{thebibliography}
`

// executeCommand runs the root command with args and stdin, returning what
// was written to stdout and stderr.
func executeCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	root := NewRootCommand()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

// inTempDir switches into a fresh directory so that neither inputs nor
// config files leak between tests.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func requireCLIError(t *testing.T, err error, code model.ExitCode) {
	t.Helper()
	require.Error(t, err)
	var cliErr *model.CLIError
	require.True(t, errors.As(err, &cliErr), "expected *model.CLIError, got %T: %v", err, err)
	assert.Equal(t, code, cliErr.Code)
}

func TestConvert_SingleFile(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.bbl", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "refs.bbl")
	require.NoError(t, err)

	bibText := readFile(t, "refs.bib")
	assert.True(t, strings.HasPrefix(bibText, bib.Header+"\n"))
	assert.Contains(t, bibText, "@article{knuth1984,")
	assert.Contains(t, bibText, "journal = {The Computer Journal}")

	assert.Contains(t, stdout, "INFO: Processing: refs.bbl -> refs.bib\n")
	assert.Contains(t, stdout, "INFO: Found 1 bibliography entries\n")
	assert.Contains(t, stdout, "INFO: Successfully converted: refs.bib\n")
}

func TestConvert_OutputFlag(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.bbl", knuthBBL)

	_, _, err := executeCommand(t, "", "convert", "refs.bbl", "-o", "custom.bib")
	require.NoError(t, err)

	assert.FileExists(t, "custom.bib")
	assert.NoFileExists(t, "refs.bib")
}

func TestConvert_OutputFlagIgnoredForMultipleInputs(t *testing.T) {
	inTempDir(t)
	writeFile(t, "a.bbl", knuthBBL)
	writeFile(t, "b.bbl", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "a.bbl", "b.bbl", "-o", "custom.bib")
	require.NoError(t, err)

	assert.Contains(t, stdout, "WARNING: --output is ignored")
	assert.FileExists(t, "a.bib")
	assert.FileExists(t, "b.bib")
	assert.NoFileExists(t, "custom.bib")
}

func TestConvert_MissingInputContinues(t *testing.T) {
	inTempDir(t)
	writeFile(t, "b.bbl", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "a.bbl", "b.bbl")
	require.NoError(t, err)

	assert.Contains(t, stdout, "ERROR: Input file does not exist: a.bbl\n")
	assert.NoFileExists(t, "a.bib")
	assert.FileExists(t, "b.bib")
}

func TestConvert_NonBBLExtensionWarns(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.txt", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "refs.txt")
	require.NoError(t, err)

	assert.Contains(t, stdout, "WARNING: Input file does not have .bbl extension: refs.txt\n")
	assert.FileExists(t, "refs.bib")
}

func TestConvert_UppercaseExtensionAccepted(t *testing.T) {
	inTempDir(t)
	writeFile(t, "REFS.BBL", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "REFS.BBL")
	require.NoError(t, err)

	assert.NotContains(t, stdout, "WARNING")
	assert.FileExists(t, "REFS.bib")
}

func TestConvert_ExistingOutput(t *testing.T) {
	const old = "% hand-written\n"

	tests := []struct {
		name        string
		stdin       string
		args        []string
		wantPrompt  bool
		wantReplace bool
	}{
		{name: "declined", stdin: "n\n", wantPrompt: true, wantReplace: false},
		{name: "no answer", stdin: "", wantPrompt: true, wantReplace: false},
		{name: "accepted", stdin: "y\n", wantPrompt: true, wantReplace: true},
		{name: "accepted uppercase", stdin: "Y\n", wantPrompt: true, wantReplace: true},
		{name: "overwrite flag", args: []string{"--overwrite"}, wantPrompt: false, wantReplace: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			writeFile(t, "refs.bbl", knuthBBL)
			writeFile(t, "refs.bib", old)

			args := append([]string{"convert", "refs.bbl"}, tt.args...)
			stdout, _, err := executeCommand(t, tt.stdin, args...)
			require.NoError(t, err)

			question := "Output file refs.bib exists. Overwrite? (y/n): "
			if tt.wantPrompt {
				assert.Contains(t, stdout, question)
			} else {
				assert.NotContains(t, stdout, question)
			}

			if tt.wantReplace {
				assert.Contains(t, readFile(t, "refs.bib"), "@article{knuth1984,")
			} else {
				assert.Equal(t, old, readFile(t, "refs.bib"))
				assert.Contains(t, stdout, "INFO: Skipping refs.bbl\n")
			}
		})
	}
}

func TestConvert_NoEntries(t *testing.T) {
	inTempDir(t)
	writeFile(t, "empty.bbl", "\\begin{thebibliography}{0}\n\\end{thebibliography}\n")

	stdout, _, err := executeCommand(t, "", "convert", "empty.bbl")
	require.NoError(t, err)

	assert.Contains(t, stdout, "WARNING: No bibliography entries found in empty.bbl\n")
	assert.NoFileExists(t, "empty.bib")
}

func TestConvert_InputIsItsOwnOutput(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.bib", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "refs.bib", "--overwrite")
	require.NoError(t, err)

	assert.Contains(t, stdout, "skipping refs.bib")
	assert.Equal(t, knuthBBL, readFile(t, "refs.bib"))
}

func TestConvert_WriteFailureExitsOne(t *testing.T) {
	inTempDir(t)
	writeFile(t, "a.bbl", knuthBBL)

	_, _, err := executeCommand(t, "", "convert", "a.bbl", "-o", filepath.Join("no", "such", "dir", "a.bib"))
	requireCLIError(t, err, model.ExitGeneralError)
	assert.Equal(t, 1, exitCode(err))
}

func TestConvert_FailureStopsLaterInputs(t *testing.T) {
	inTempDir(t)
	writeFile(t, "a.bbl", knuthBBL)
	writeFile(t, "b.bbl", knuthBBL)
	// A directory in place of a.bib makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join("a.bib", "child"), 0o755))

	_, _, err := executeCommand(t, "", "convert", "a.bbl", "b.bbl", "--overwrite")
	requireCLIError(t, err, model.ExitGeneralError)
	assert.NoFileExists(t, "b.bib")
}

func TestConvert_FormatFromConfigAndFlag(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.bbl", knuthBBL)
	writeFile(t, ".bbl2bib.yaml", "format: minimal\noverwrite: true\n")

	_, _, err := executeCommand(t, "", "convert", "refs.bbl")
	require.NoError(t, err)
	minimal := readFile(t, "refs.bib")
	assert.NotContains(t, minimal, "pages")

	// The flag wins over the config file, and overwrite: true means no prompt.
	_, _, err = executeCommand(t, "", "convert", "refs.bbl", "--format", "full")
	require.NoError(t, err)
	full := readFile(t, "refs.bib")
	assert.Contains(t, full, "% source: ")
	assert.Contains(t, full, "pages   = {97--111}")
}

func TestConvert_ExplicitConfigFlag(t *testing.T) {
	dir := inTempDir(t)
	writeFile(t, "refs.bbl", knuthBBL)
	cfgPath := filepath.Join(dir, "settings.jsonc")
	writeFile(t, cfgPath, "{\n  // comments are allowed\n  \"format\": \"minimal\",\n}\n")

	_, _, err := executeCommand(t, "", "--config", cfgPath, "convert", "refs.bbl")
	require.NoError(t, err)
	assert.NotContains(t, readFile(t, "refs.bib"), "pages")
}

func TestConvert_InvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code model.ExitCode
	}{
		{"unknown format", []string{"convert", "refs.bbl", "--format", "fancy"}, model.ExitGeneralError},
		{"zero jobs", []string{"convert", "refs.bbl", "--jobs", "0"}, model.ExitGeneralError},
		{"missing config", []string{"--config", "nope.yaml", "convert", "refs.bbl"}, model.ExitInputNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inTempDir(t)
			writeFile(t, "refs.bbl", knuthBBL)

			_, _, err := executeCommand(t, "", tt.args...)
			requireCLIError(t, err, tt.code)
			assert.NoFileExists(t, "refs.bib")
		})
	}
}

func TestConvert_InvalidConfigFile(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.bbl", knuthBBL)
	writeFile(t, ".bbl2bib.yaml", "jobs: 0\n")

	_, _, err := executeCommand(t, "", "convert", "refs.bbl")
	requireCLIError(t, err, model.ExitParseError)
}

func TestConvert_RequiresInput(t *testing.T) {
	inTempDir(t)
	_, _, err := executeCommand(t, "", "convert")
	require.Error(t, err)
}

func TestConvert_JSONSummary(t *testing.T) {
	inTempDir(t)
	writeFile(t, "a.bbl", knuthBBL)
	writeFile(t, "empty.bbl", "")

	stdout, stderr, err := executeCommand(t, "", "--json", "convert", "a.bbl", "missing.bbl", "empty.bbl", "--jobs", "2")
	require.NoError(t, err)

	var results []convertResult
	require.NoError(t, json.Unmarshal([]byte(stdout), &results), "stdout must be pure JSON: %s", stdout)
	assert.Equal(t, []convertResult{
		{Input: "a.bbl", Output: "a.bib", Entries: 1, Status: statusConverted},
		{Input: "missing.bbl", Status: statusMissing},
		{Input: "empty.bbl", Output: "empty.bib", Status: statusEmpty},
	}, results)

	// Log lines move to stderr in JSON mode.
	assert.Contains(t, stderr, "INFO: Successfully converted: a.bib")
}

func TestConvert_VerboseLogsDebug(t *testing.T) {
	inTempDir(t)
	writeFile(t, "refs.bbl", knuthBBL)

	stdout, _, err := executeCommand(t, "", "convert", "refs.bbl", "-v")
	require.NoError(t, err)
	assert.Regexp(t, `\d{2}:\d{2}:\d{2} - DEBUG - bbl2bib - Parsed input`, stdout)
}

func TestConvert_ManyInputsKeepArgumentOrder(t *testing.T) {
	inTempDir(t)
	names := []string{"e.bbl", "d.bbl", "c.bbl", "b.bbl", "a.bbl"}
	for _, n := range names {
		writeFile(t, n, knuthBBL)
	}

	args := append([]string{"convert", "--jobs", "3"}, names...)
	stdout, _, err := executeCommand(t, "", args...)
	require.NoError(t, err)

	last := -1
	for _, n := range names {
		idx := strings.Index(stdout, "Processing: "+n)
		require.GreaterOrEqual(t, idx, 0, "no log line for %s", n)
		assert.Greater(t, idx, last, "%s processed out of order", n)
		last = idx
	}
}

func TestConverter_Watch(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "refs.bbl")
	output := filepath.Join(dir, "refs.bib")
	writeFile(t, input, knuthBBL)

	c := &converter{
		parser:   bbl.NewParser(bbl.Options{}),
		writer:   bib.NewWriter(model.StyleStandard),
		prompter: prompt.New(strings.NewReader(""), io.Discard),
		logger:   zap.NewNop(),
		jobs:     1,
	}
	plan := c.plan([]string{input}, "")
	_, err := c.run(context.Background(), plan)
	require.NoError(t, err)
	require.Contains(t, readFile(t, output), "knuth1984")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.watch(ctx, plan) }()

	updated := strings.Replace(knuthBBL, "knuth1984", "knuth1984b", 1)
	// Rewrite on every tick until the watcher has picked the change up; the
	// tick is longer than the debounce period so rewrites cannot starve it.
	assert.Eventually(t, func() bool {
		if strings.Contains(readFile(t, output), "knuth1984b") {
			return true
		}
		writeFile(t, input, updated)
		return false
	}, 10*time.Second, 500*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestConverter_WatchNothing(t *testing.T) {
	c := &converter{logger: zap.NewNop()}
	err := c.watch(context.Background(), []*convertJob{{input: "gone.bbl", missing: true}})
	requireCLIError(t, err, model.ExitInputNotFound)
}

func TestBibPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"refs.bbl", "refs.bib"},
		{"dir/paper.BBL", "dir/paper.bib"},
		{"noext", "noext.bib"},
		{"archive.tar.bbl", "archive.tar.bib"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, bibPath(tt.in))
	}
}
