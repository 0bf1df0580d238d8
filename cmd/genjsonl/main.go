package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
)

// onUsageError maps flag-parse failures onto the invalid-argument exit path.
func onUsageError(ctx context.Context, cmd *cli.Command, err error, isSubcommand bool) error {
	return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
}

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})
	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Errorf("%v", err)
		if shared.IsUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:         "genjsonl",
		Usage:        "Convert a CSV of artist data to batch-API JSONL tasks",
		Version:      "0.1.0",
		OnUsageError: onUsageError,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "in",
				Usage: "Input CSV file path",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output JSONL file path",
			},
			&cli.StringFlag{
				Name:    "prompt-id",
				Usage:   "Prompt ID",
				Sources: cli.EnvVars("PROMPT_ID"),
			},
			&cli.StringFlag{
				Name:    "prompt-version",
				Usage:   "Prompt version (optional)",
				Sources: cli.EnvVars("PROMPT_VERSION"),
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Process only the first N data rows (for dry runs)",
			},
			&cli.BoolFlag{
				Name:  "skip-header",
				Usage: "Input has no header row (assume artist_id,artist_name,artist_data order)",
			},
			&cli.BoolFlag{
				Name:  "strict",
				Usage: "Fail on the first invalid row (default: log and skip bad rows)",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable verbose logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: runner.Convert,
	}
}
