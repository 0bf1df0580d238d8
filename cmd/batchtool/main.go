package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	// interrupting a watch loop should tear down cleanly
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, os.Args); err != nil {
		logger.Errorf("%v", err)
		if shared.IsUsageError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:         "batchtool",
		Usage:        "Create, monitor, retrieve and cancel remote batch jobs",
		Version:      "0.1.0",
		Commands:     runner.register(),
		OnUsageError: onUsageError,
	}
}
