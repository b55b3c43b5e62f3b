// Package cli contains the command implementations behind cmd/quadrat.
package cli

import (
	"fmt"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	TimelinePath   string
	RunID          string
	Watch          bool
	Plain          bool
	Debug          bool
	JSONLogs       bool
	RedisURL       string
	DataDir        string
	HTTPAddr       string
	MaskPII        []string
	PresentersPath string

	// Seed applies only when SeedSet is true; zero is a valid seed.
	Seed    uint64
	SeedSet bool
}

// Execute handles the 'run' command logic, dispatching to Session or Watch mode.
func Execute(opts RunOptions) error {
	if opts.Watch {
		if opts.HTTPAddr != "" {
			return fmt.Errorf("--watch and --serve cannot be used together")
		}
		RunWatch(opts)
		return nil
	}
	return RunSession(opts)
}
