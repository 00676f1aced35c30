// Package cli: convert.go implements the "bbl2bib convert" command.
//
// Orchestration steps:
//  1. Resolve flags against the configuration file
//  2. Plan one job per input (existence, extension, output path)
//  3. Parse all present inputs concurrently, bounded by --jobs
//  4. In argument order: confirm overwrites, report parse failures, and
//     write the .bib files
//  5. Output results (text log or JSON summary)
//  6. With --watch, repeat steps 3-4 for each input that changes on disk
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shinji-kodama/bbl2bib/internal/bbl"
	"github.com/shinji-kodama/bbl2bib/internal/bib"
	"github.com/shinji-kodama/bbl2bib/internal/config"
	"github.com/shinji-kodama/bbl2bib/internal/model"
	"github.com/shinji-kodama/bbl2bib/internal/prompt"
	"github.com/shinji-kodama/bbl2bib/internal/watch"
)

// Conversion statuses reported in the --json summary.
const (
	statusConverted = "converted"
	statusSkipped   = "skipped"
	statusMissing   = "missing"
	statusEmpty     = "empty"
)

// convertFlags holds the flag values for the convert command.
type convertFlags struct {
	output    string // --output: output file, only with a single input
	overwrite bool   // --overwrite: replace existing files without asking
	format    string // --format: standard, minimal or full
	watch     bool   // --watch: re-convert inputs when they change
	jobs      int    // --jobs: parallel parse workers
}

// convertResult is one element of the --json summary.
type convertResult struct {
	Input   string `json:"input"`
	Output  string `json:"output,omitempty"`
	Entries int    `json:"entries"`
	Status  string `json:"status"`
}

// convertJob is one planned input/output pair.
type convertJob struct {
	input   string
	output  string
	missing bool

	// Filled by the parse phase.
	entries  []model.Entry
	parseErr error
}

// converter carries the resolved settings for one convert invocation.
type converter struct {
	parser    *bbl.Parser
	writer    *bib.Writer
	prompter  *prompt.Prompter
	logger    *zap.Logger
	overwrite bool
	jobs      int
}

// NewConvertCommand creates the "convert" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewConvertCommand() *cobra.Command {
	flags := &convertFlags{}

	cmd := &cobra.Command{
		Use:   "convert <input.bbl>...",
		Short: "Convert .bbl files to BibTeX .bib files",
		Long: `Convert one or more .bbl files back to BibTeX .bib databases.

Each input is written next to itself with a .bib extension unless --output
is given together with a single input. Existing output files are only
replaced after confirmation, or with --overwrite.

Examples:
  bbl2bib convert input.bbl
  bbl2bib convert input.bbl -o output.bib
  bbl2bib convert *.bbl --format minimal
  bbl2bib convert paper.bbl --watch`,

		Args: cobra.MinimumNArgs(1),

		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output .bib file (default: input name with .bib extension)")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Overwrite existing output files without asking")
	cmd.Flags().StringVar(&flags.format, "format", model.StyleStandard.String(), "Output format style: standard, minimal or full")
	cmd.Flags().BoolVar(&flags.watch, "watch", false, "Re-convert inputs whenever they change, until interrupted")
	cmd.Flags().IntVar(&flags.jobs, "jobs", config.DefaultJobs, "Number of files parsed in parallel")

	return cmd
}

// runConvert resolves settings and runs the conversion, then optionally
// keeps watching the inputs.
func runConvert(cmd *cobra.Command, args []string, flags *convertFlags) error {
	// Flags explicitly set on the command line win over the config file.
	format := cfg.Format
	if cmd.Flags().Changed("format") {
		format = flags.format
	}
	style, err := model.ParseFormatStyle(format)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "invalid --format", err)
	}

	overwrite := cfg.Overwrite
	if cmd.Flags().Changed("overwrite") {
		overwrite = flags.overwrite
	}

	jobs := cfg.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = flags.jobs
	}
	if jobs < 1 {
		return model.NewCLIError(model.ExitGeneralError, fmt.Sprintf("--jobs must be at least 1, got %d", jobs))
	}

	if flags.output != "" && len(args) > 1 {
		logger.Warn("--output is ignored when converting more than one file")
	}

	// Questions must not end up inside the JSON document on stdout.
	promptOut := cmd.OutOrStdout()
	if IsJSONOutput() {
		promptOut = cmd.ErrOrStderr()
	}

	c := &converter{
		parser:    bbl.NewParser(bbl.Options{ExtraPublishers: cfg.Publishers}),
		writer:    bib.NewWriter(style),
		prompter:  prompt.New(cmd.InOrStdin(), promptOut),
		logger:    logger,
		overwrite: overwrite,
		jobs:      jobs,
	}

	plan := c.plan(args, flags.output)
	results, err := c.run(cmd.Context(), plan)

	if IsJSONOutput() {
		if jsonErr := printJSON(cmd.OutOrStdout(), results); jsonErr != nil && err == nil {
			err = jsonErr
		}
	}
	if err != nil || !flags.watch {
		return err
	}

	return c.watch(cmd.Context(), plan)
}

// plan builds one job per input in argument order. Missing inputs are
// reported here and marked so later phases skip them.
func (c *converter) plan(inputs []string, output string) []*convertJob {
	plan := make([]*convertJob, 0, len(inputs))
	for _, input := range inputs {
		job := &convertJob{input: input}
		plan = append(plan, job)

		if info, err := os.Stat(input); err != nil || info.IsDir() {
			c.logger.Error(fmt.Sprintf("Input file does not exist: %s", input))
			job.missing = true
			continue
		}

		if !strings.EqualFold(filepath.Ext(input), ".bbl") {
			c.logger.Warn(fmt.Sprintf("Input file does not have .bbl extension: %s", input))
		}

		if output != "" && len(inputs) == 1 {
			job.output = output
		} else {
			job.output = bibPath(input)
		}
	}
	return plan
}

// run parses every present job concurrently and then writes the results
// sequentially in argument order. The first parse or write failure stops
// the run; results gathered up to that point are still returned.
func (c *converter) run(ctx context.Context, plan []*convertJob) ([]convertResult, error) {
	if err := c.parseAll(ctx, plan); err != nil {
		return nil, err
	}

	results := make([]convertResult, 0, len(plan))
	for _, job := range plan {
		result, err := c.write(job, c.overwrite)
		results = append(results, result)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// parseAll fills entries and parseErr of every present job. Individual
// parse errors are kept on the job and surface in argument order during
// the write phase, so a failure in a later file never pre-empts the prompt
// or the output of an earlier one.
func (c *converter) parseAll(ctx context.Context, plan []*convertJob) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.jobs)

	for _, job := range plan {
		if job.missing {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			job.entries, job.parseErr = c.parser.ParseFile(job.input)
			c.logger.Debug("Parsed input",
				zap.String("input", job.input),
				zap.Int("entries", len(job.entries)),
				zap.Error(job.parseErr))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "conversion interrupted", err)
	}
	return nil
}

// write handles the sequential part of one job: the overwrite question,
// parse failures, empty inputs and the file write itself.
func (c *converter) write(job *convertJob, overwrite bool) (convertResult, error) {
	result := convertResult{Input: job.input, Output: job.output}

	if job.missing {
		result.Status = statusMissing
		return result, nil
	}

	if sameFile(job.input, job.output) {
		c.logger.Error(fmt.Sprintf("Output file would replace its input, skipping %s", job.input))
		result.Status = statusSkipped
		return result, nil
	}

	if _, err := os.Stat(job.output); err == nil && !overwrite {
		yes, err := c.prompter.Confirm(fmt.Sprintf("Output file %s exists. Overwrite? (y/n): ", job.output))
		if err != nil {
			return result, model.WrapCLIError(model.ExitGeneralError, "failed to read answer", err)
		}
		if !yes {
			c.logger.Info(fmt.Sprintf("Skipping %s", job.input))
			result.Status = statusSkipped
			return result, nil
		}
	}

	c.logger.Info(fmt.Sprintf("Processing: %s -> %s", job.input, job.output))

	if job.parseErr != nil {
		c.logger.Error(fmt.Sprintf("Error processing %s: %v", job.input, job.parseErr))
		return result, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to convert %s", job.input), job.parseErr)
	}

	if len(job.entries) == 0 {
		c.logger.Warn(fmt.Sprintf("No bibliography entries found in %s", job.input))
		result.Status = statusEmpty
		return result, nil
	}

	c.logger.Info(fmt.Sprintf("Found %d bibliography entries", len(job.entries)))
	result.Entries = len(job.entries)

	if err := c.writer.WriteFile(job.output, job.entries); err != nil {
		c.logger.Error(fmt.Sprintf("Error processing %s: %v", job.input, err))
		return result, model.WrapCLIError(model.ExitGeneralError, fmt.Sprintf("failed to convert %s", job.input), err)
	}

	c.logger.Info(fmt.Sprintf("Successfully converted: %s", job.output))
	result.Status = statusConverted
	return result, nil
}

// watch re-converts inputs as they change until the context is cancelled
// or the process receives an interrupt. Outputs are rewritten without
// asking, since they were produced by this command. Failures are logged
// and watching continues.
func (c *converter) watch(ctx context.Context, plan []*convertJob) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	byPath := make(map[string]*convertJob, len(plan))
	paths := make([]string, 0, len(plan))
	for _, job := range plan {
		if job.missing {
			continue
		}
		abs, err := filepath.Abs(job.input)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to resolve input path", err)
		}
		byPath[abs] = job
		paths = append(paths, abs)
	}
	if len(paths) == 0 {
		return model.NewCLIError(model.ExitInputNotFound, "no input files to watch")
	}

	w, err := watch.New(paths, watch.DefaultDebounce, c.logger)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to start watching", err)
	}
	defer func() { _ = w.Close() }()

	c.logger.Info(fmt.Sprintf("Watching %d file(s) for changes, press Ctrl+C to stop", len(paths)))

	return w.Run(ctx, func(path string) {
		job, ok := byPath[path]
		if !ok {
			return
		}
		job.entries, job.parseErr = c.parser.ParseFile(job.input)
		if _, err := c.write(job, true); err != nil {
			c.logger.Error(err.Error())
		}
	})
}

// bibPath replaces the extension of input with ".bib", or appends it when
// input has none.
func bibPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".bib"
}

// sameFile reports whether a and b name the same path once cleaned and
// made absolute.
func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
