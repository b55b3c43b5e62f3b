package cli

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/quadrat"
	"github.com/aretw0/quadrat/internal/presentation/tui"
	"github.com/aretw0/quadrat/pkg/loader"
	"github.com/aretw0/quadrat/pkg/runner"
)

const watchPollInterval = 500 * time.Millisecond

// RunWatch executes the timeline in development mode, restarting the run
// whenever the timeline file changes. Intended for experiment authors, not
// participants.
func RunWatch(opts RunOptions) {
	logger := createLogger(opts)
	if !opts.Plain {
		tui.PrintBanner(quadrat.Version)
	}
	printSystemMessage("Watching '%s' for changes.", opts.TimelinePath)

	sm := runner.NewSignalManager()
	defer sm.Stop()

	for {
		hash, err := fileHash(opts.TimelinePath)
		if err != nil {
			fmt.Printf("Error reading timeline: %v\n", err)
			if !waitForChange(sm.Context(), opts.TimelinePath, hash) {
				return
			}
			continue
		}

		desc, err := loader.LoadFile(opts.TimelinePath)
		if err != nil {
			fmt.Printf("Error loading timeline: %v\n", err)
			if !waitForChange(sm.Context(), opts.TimelinePath, hash) {
				return
			}
			continue
		}

		// Cancel the in-flight run as soon as the file changes.
		runCtx, cancelRun := context.WithCancel(context.Background())
		changed := make(chan struct{})
		go func() {
			if waitForChange(runCtx, opts.TimelinePath, hash) {
				close(changed)
				cancelRun()
			}
		}()

		exp, runErr := executeRun(runCtx, opts, logger, sm, desc)

		select {
		case <-changed:
			cancelRun()
			printSystemMessage("Timeline changed, restarting run.")
			continue
		default:
		}
		cancelRun()

		if sm.Context().Err() != nil {
			logCompletion(exp, runErr, opts.Plain)
			return
		}
		if runErr != nil && handleExecutionError(runErr) != nil {
			fmt.Printf("Run failed: %v\n", runErr)
		} else {
			logCompletion(exp, runErr, opts.Plain)
		}

		printSystemMessage("Waiting for changes...")
		if !waitForChange(sm.Context(), opts.TimelinePath, hash) {
			return
		}
		printSystemMessage("Timeline changed, restarting run.")
	}
}

// waitForChange polls until the file content hash differs from prev. It
// returns false when the context is cancelled first.
func waitForChange(ctx context.Context, path string, prev [16]byte) bool {
	ticker := time.NewTicker(watchPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			h, err := fileHash(path)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					continue
				}
				return true
			}
			if h != prev {
				return true
			}
		}
	}
}

func fileHash(path string) ([16]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return [16]byte{}, err
	}
	return md5.Sum(data), nil
}
