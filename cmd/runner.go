package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/quaverd/quaver/internal/library"
	"github.com/quaverd/quaver/internal/shared"
	"github.com/quaverd/quaver/internal/storage"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	logger  *log.Logger
	output  io.Writer
	breaker *storage.Breaker
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Logger  *log.Logger
	Output  io.Writer
	Breaker *storage.Breaker
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Breaker == nil {
		opts.Breaker = storage.NewBreaker(
			opts.Config.Breaker.FailureThreshold,
			time.Duration(opts.Config.Breaker.CooldownSeconds)*time.Second,
		)
	}

	return &Runner{
		config:  opts.Config,
		logger:  opts.Logger,
		output:  opts.Output,
		breaker: opts.Breaker,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, libraryCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// reloadConfig swaps in the config file named by the command's --config
// flag when it exists.
func (r *Runner) reloadConfig(cmd *cli.Command) {
	configPath := cmd.String("config")
	if configPath == "" {
		return
	}
	if _, err := os.Stat(configPath); err != nil {
		return
	}
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		r.logger.Warn("failed to load config, keeping current", "path", configPath, "error", err)
		return
	}
	r.config = config
}

// openLibrary wires the storage manager, store, and cache coordinator from
// the current config.
func (r *Runner) openLibrary(ctx context.Context) (*library.Coordinator, *storage.Store, *storage.Manager, error) {
	manager := storage.NewManager(storage.ManagerOpts{
		Path:    r.config.Database.Path,
		Breaker: r.breaker,
		Retry: storage.RetryPolicy{
			MaxAttempts:   r.config.Retry.MaxAttempts,
			InitialDelay:  time.Duration(r.config.Retry.InitialDelayMS) * time.Millisecond,
			BackoffFactor: r.config.Retry.BackoffFactor,
			MaxJitter:     time.Duration(r.config.Retry.MaxJitterMS) * time.Millisecond,
		},
		Tuning: storage.Tuning{
			BusyTimeout: time.Duration(r.config.Database.BusyTimeoutMS) * time.Millisecond,
			CacheSizeKB: r.config.Database.CacheSizeKB,
			Synchronous: r.config.Database.Synchronous,
		},
		Logger: r.logger,
	})

	if _, err := manager.Open(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("%w: %w", shared.ErrStorageUnavailable, err)
	}

	store := storage.NewStore(manager, r.logger)
	cache := library.New(library.Options{
		Provider:    store,
		Sink:        shared.NewLogSink(r.logger),
		InitTimeout: r.config.Cache.InitTimeout(),
	})
	return cache, store, manager, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
