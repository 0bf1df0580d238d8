package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/xdjs/artist-bio-gen-batch/internal/batch"
	"github.com/xdjs/artist-bio-gen-batch/internal/openai"
	"github.com/xdjs/artist-bio-gen-batch/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	logger *log.Logger
	output io.Writer
	errOut io.Writer
	client batch.Client // pre-built client, used by tests; built per run otherwise
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Logger *log.Logger
	Output io.Writer
	ErrOut io.Writer
	Client batch.Client
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOut == nil {
		opts.ErrOut = os.Stderr
	}
	return &Runner{
		logger: opts.Logger,
		output: opts.Output,
		errOut: opts.ErrOut,
		client: opts.Client,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		initCommand, createCommand, statusCommand, retrieveCommand, cancelCommand, listCommand, watchCommand,
	} {
		command := fn(r)
		command.OnUsageError = onUsageError
		commands = append(commands, command)
	}

	return commands
}

// onUsageError maps flag-parse failures onto the invalid-argument exit path.
func onUsageError(ctx context.Context, cmd *cli.Command, err error, isSubcommand bool) error {
	return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
}

// setup resolves configuration, the credential and the per-invocation file
// logger, and builds the Manager for one operation. The returned teardown
// closes the log file after a final entry.
func (r *Runner) setup(cmd *cli.Command) (*batch.Manager, *shared.Config, func(), error) {
	config := shared.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := shared.LoadConfig(path)
			if err != nil {
				return nil, nil, nil, err
			}
			config = loaded
		} else if cmd.IsSet("config") {
			// the implicit config.toml default may be absent; a path the
			// user asked for may not
			return nil, nil, nil, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	client := r.client
	if client == nil {
		// credential comes only from the environment and is checked
		// before any I/O; it is never logged
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, nil, nil, fmt.Errorf("%w: OPENAI_API_KEY environment variable not set", shared.ErrMissingCredentials)
		}

		c, err := openai.NewClient(openai.ClientOpts{
			BaseURL:   config.API.BaseURL,
			APIKey:    apiKey,
			Timeout:   time.Duration(config.API.TimeoutSeconds) * time.Second,
			RateLimit: config.API.RateLimit,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		client = c
	}

	logPath := cmd.String("log-file")
	if logPath == "" {
		logPath = shared.DefaultLogPath(config.Batch.LogsDir, time.Now())
	}
	fileLogger, logFile, err := shared.NewFileLogger(logPath)
	if err != nil {
		return nil, nil, nil, err
	}
	fileLogger = shared.WithLogger(fileLogger, "run", shared.GenerateRunID())
	fileLogger.Info("starting batchtool", "command", cmd.Name)

	manager := batch.NewManager(batch.ManagerOpts{
		Client:  client,
		Logger:  fileLogger,
		Output:  r.output,
		ErrOut:  r.errOut,
		Verbose: cmd.Bool("verbose"),
	})

	teardown := func() {
		fileLogger.Info("batchtool finished", "command", cmd.Name)
		logFile.Close()
	}
	return manager, config, teardown, nil
}

// requireBatchID fetches the --batch-id flag shared by most subcommands.
func requireBatchID(cmd *cli.Command) (string, error) {
	id := cmd.String("batch-id")
	if id == "" {
		return "", fmt.Errorf("%w: --batch-id", shared.ErrMissingArgument)
	}
	return id, nil
}

func autoSaveEnabled(cmd *cli.Command) bool {
	return cmd.Bool("auto-save") && !cmd.Bool("no-auto-save")
}
