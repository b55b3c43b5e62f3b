package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/internal/logging"
	"github.com/aretw0/quadrat/pkg/adapters/file"
	"github.com/aretw0/quadrat/pkg/adapters/redis"
	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/persistence/middleware"
	"github.com/aretw0/quadrat/pkg/ports"
)

// createLogger configures the application logger.
// In debug mode, it writes to Stderr (to separate from the Stdout prompt UI).
func createLogger(opts RunOptions) *slog.Logger {
	if !opts.Debug {
		return logging.NewNop()
	}
	format := logging.FormatText
	if opts.JSONLogs {
		format = logging.FormatJSON
	}
	return logging.New(slog.LevelDebug, format)
}

// printSystemMessage prints a standardized system message to stdout.
func printSystemMessage(format string, args ...any) {
	fmt.Printf(">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTrialStart: func(ctx context.Context, e *domain.TrialEvent) {
			logger.Debug("Trial Start", "trial_type", e.TrialType, "trial_index", e.TrialIndex)
		},
		OnTrialFinish: func(ctx context.Context, e *domain.TrialEvent) {
			logger.Debug("Trial Finish", "trial_type", e.TrialType, "trial_index", e.TrialIndex)
		},
		OnTimelineEnter: func(ctx context.Context, e *domain.TimelineEvent) {
			logger.Debug("Timeline Enter", "name", e.Name, "depth", e.Depth)
		},
		OnTimelineFinish: func(ctx context.Context, e *domain.TimelineEvent) {
			logger.Debug("Timeline Finish", "name", e.Name, "depth", e.Depth)
		},
	}
}

// setupStore builds the result store chain: Redis when a URL is given,
// local JSONL files otherwise, wrapped in PII masking when requested. The
// returned closer releases the Redis connection.
func setupStore(opts RunOptions) (ports.ResultStore, func() error, error) {
	var store ports.ResultStore
	closer := func() error { return nil }

	if opts.RedisURL != "" {
		rs, err := redis.NewFromURL(opts.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid redis URL: %w", err)
		}
		store = rs
		closer = rs.Close
	} else {
		store = file.New(opts.DataDir)
	}

	if len(opts.MaskPII) > 0 {
		store = middleware.NewPIIMiddleware(opts.MaskPII)(store)
	}

	return store, closer, nil
}

// handleExecutionError maps expected terminations to a clean exit.
func handleExecutionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrAborted) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func logCompletion(exp *quadrat.Experiment, err error, quiet bool) {
	if quiet {
		return
	}
	records := 0
	if exp != nil {
		records = exp.Data().Len()
	}
	switch {
	case err == nil:
		printSystemMessage("Finished: %d records collected.", records)
	case errors.Is(err, domain.ErrAborted) || errors.Is(err, context.Canceled):
		fmt.Printf("\n")
		printSystemMessage("Interrupted: %d records collected.", records)
	}
}
