package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/xdjs/artist-bio-gen-batch/internal/convert"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
	"github.com/xdjs/artist-bio-gen-batch/internal/ui"
)

// Runner holds the converter CLI's dependencies.
type Runner struct {
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{logger: opts.Logger, output: opts.Output}
}

// Convert is the single CLI action: validate configuration, stream the CSV
// into the JSONL output and print the final counts.
func (r *Runner) Convert(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	inPath := cmd.String("in")
	outPath := cmd.String("out")
	if inPath == "" {
		return fmt.Errorf("%w: --in", shared.ErrMissingArgument)
	}
	if outPath == "" {
		return fmt.Errorf("%w: --out", shared.ErrMissingArgument)
	}

	config := shared.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				return err
			}
			config = loaded
		} else if cmd.IsSet("config") {
			// the implicit config.toml default may be absent; a path the
			// user asked for may not
			return fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	promptID := cmd.String("prompt-id")
	if promptID == "" {
		promptID = config.Prompt.ID
	}
	if promptID == "" {
		return fmt.Errorf("%w: provide --prompt-id or set PROMPT_ID", shared.ErrMissingPromptID)
	}
	promptVersion := cmd.String("prompt-version")
	if promptVersion == "" {
		promptVersion = config.Prompt.Version
	}

	r.logger.Info("converting", "in", inPath, "out", outPath)
	if promptVersion != "" {
		r.logger.Info("using prompt", "prompt_id", promptID, "prompt_version", promptVersion)
	} else {
		r.logger.Info("using prompt (no version specified)", "prompt_id", promptID)
	}
	if limit := cmd.Int("limit"); limit > 0 {
		r.logger.Info("limiting input", "rows", limit)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInputAccess, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	converter := convert.NewConverter(convert.Options{
		PromptID:      promptID,
		PromptVersion: promptVersion,
		Limit:         cmd.Int("limit"),
		SkipHeader:    cmd.Bool("skip-header"),
		Strict:        cmd.Bool("strict"),
	}, r.logger)

	stats, runErr := converter.Run(in, out)
	if cerr := out.Close(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("failed to finalize output file: %w", cerr)
	}
	if runErr != nil {
		return runErr
	}

	fmt.Fprintf(r.output, "%s %d rows read, %d written, %d skipped\n",
		ui.OK("Conversion complete:"), stats.Read, stats.Written, stats.Skipped)
	return nil
}
