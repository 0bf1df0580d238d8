// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
)

// commonFlags are shared by every subcommand.
func commonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "Log file path (default: logs/batch_YYYYMMDD_HHMMSS.log)",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Display raw API responses",
		},
	}
}

func autoSaveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "auto-save",
			Usage: "Auto-save results if completed (default: on)",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "no-auto-save",
			Usage: "Disable auto-save",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output file path (default: results_<batch_id>.jsonl)",
		},
	}
}

// initCommand scaffolds a config.toml from the embedded template
func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create a config.toml from the default template",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			configPath := cmd.String("config")
			if err := shared.CreateConfigFile(configPath); err != nil {
				return err
			}
			r.logger.Info("config file created", "path", configPath)
			fmt.Fprintf(r.output, "Config file created: %s\n", configPath)
			return nil
		},
	}
}

// createCommand uploads an input file and starts a batch job
func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Upload file and create batch",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:  "in",
				Usage: "Input JSONL file path",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "API endpoint (default: /v1/responses)",
			},
			&cli.StringFlag{
				Name:  "completion-window",
				Usage: "Completion window (default: 24h)",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			in := cmd.String("in")
			if in == "" {
				return fmt.Errorf("%w: --in", shared.ErrMissingArgument)
			}

			manager, config, teardown, err := r.setup(cmd)
			if err != nil {
				return err
			}
			defer teardown()

			endpoint := cmd.String("endpoint")
			if endpoint == "" {
				endpoint = config.Batch.Endpoint
			}
			window := cmd.String("completion-window")
			if window == "" {
				window = config.Batch.CompletionWindow
			}

			return manager.Create(ctx, in, endpoint, window)
		},
	}
}

// statusCommand reports batch state, auto-saving results when completed
func statusCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Check batch status",
		Flags: append(append(commonFlags(), autoSaveFlags()...),
			&cli.StringFlag{
				Name:  "batch-id",
				Usage: "Batch ID to check",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			batchID, err := requireBatchID(cmd)
			if err != nil {
				return err
			}

			manager, _, teardown, err := r.setup(cmd)
			if err != nil {
				return err
			}
			defer teardown()

			return manager.Status(ctx, batchID, autoSaveEnabled(cmd), cmd.String("out"))
		},
	}
}

// retrieveCommand downloads the results of a completed batch
func retrieveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "retrieve",
		Usage: "Retrieve batch results",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:  "batch-id",
				Usage: "Batch ID to retrieve",
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Output file path (default: results_<batch_id>.jsonl)",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			batchID, err := requireBatchID(cmd)
			if err != nil {
				return err
			}

			manager, _, teardown, err := r.setup(cmd)
			if err != nil {
				return err
			}
			defer teardown()

			return manager.Retrieve(ctx, batchID, cmd.String("out"))
		},
	}
}

// cancelCommand requests cancellation of a batch job
func cancelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cancel",
		Usage: "Cancel batch job",
		Flags: append(commonFlags(),
			&cli.StringFlag{
				Name:  "batch-id",
				Usage: "Batch ID to cancel",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			batchID, err := requireBatchID(cmd)
			if err != nil {
				return err
			}

			manager, _, teardown, err := r.setup(cmd)
			if err != nil {
				return err
			}
			defer teardown()

			return manager.Cancel(ctx, batchID)
		},
	}
}

// listCommand prints a summary of recent batch jobs
func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List batch jobs",
		Flags: append(commonFlags(),
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of batches to retrieve",
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			manager, _, teardown, err := r.setup(cmd)
			if err != nil {
				return err
			}
			defer teardown()

			return manager.List(ctx, cmd.Int("limit"))
		},
	}
}

// watchCommand polls batch status until it reaches a terminal state
func watchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Poll batch status until it finishes",
		Flags: append(append(commonFlags(), autoSaveFlags()...),
			&cli.StringFlag{
				Name:  "batch-id",
				Usage: "Batch ID to watch",
			},
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval",
				Value: 30 * time.Second,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			batchID, err := requireBatchID(cmd)
			if err != nil {
				return err
			}

			manager, _, teardown, err := r.setup(cmd)
			if err != nil {
				return err
			}
			defer teardown()

			return manager.Watch(ctx, batchID, cmd.Duration("interval"), autoSaveEnabled(cmd), cmd.String("out"))
		},
	}
}
