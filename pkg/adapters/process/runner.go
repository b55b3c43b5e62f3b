// Package process implements ports.TrialRunner by delegating trial
// presentation to external programs: browsers, media players, or custom
// stimulus binaries that the terminal presenters cannot express.
package process

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/aretw0/quadrat/pkg/domain"
	"github.com/aretw0/quadrat/pkg/ports"
)

// Runner presents trials by spawning registered commands. It follows a
// Strict Registry pattern for security (Allow-Listing): a trial type with no
// registered presenter fails the run instead of executing arbitrary input.
type Runner struct {
	registry map[string]RegisteredPresenter
	baseDir  string

	mu      sync.Mutex
	current *exec.Cmd
}

// RegisteredPresenter defines an allowed command execution.
type RegisteredPresenter struct {
	Command string
	Args    []string
}

// RunnerOption configures the runner.
type RunnerOption func(*Runner)

// WithRegistry populates the allow-list from a loaded config.
func WithRegistry(presenters map[string]PresenterConfig) RunnerOption {
	return func(r *Runner) {
		for trialType, p := range presenters {
			r.Register(trialType, p.Command, p.Args...)
		}
	}
}

// WithBaseDir sets the working directory for spawned presenters.
func WithBaseDir(dir string) RunnerOption {
	return func(r *Runner) {
		r.baseDir = dir
	}
}

// NewRunner creates a new external presenter runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: make(map[string]RegisteredPresenter),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a trusted command to the allow-list for a trial type.
func (r *Runner) Register(trialType string, command string, args ...string) {
	r.registry[trialType] = RegisteredPresenter{
		Command: command,
		Args:    args,
	}
}

// RunTrial spawns the presenter registered for the trial's type. The
// resolved parameters arrive twice: as a JSON object on stdin and as
// QUADRAT_PARAM_* environment variables for shell-level presenters.
//
// The presenter's stdout becomes the trial result: a JSON object is taken
// as the raw result mapping, anything else is wrapped under "output". A
// non-zero exit is fatal to the run.
func (r *Runner) RunTrial(ctx context.Context, params map[string]any, finish ports.FinishFunc) error {
	trialType, _ := params[domain.FieldTrialType].(string)
	proc, ok := r.registry[trialType]
	if !ok {
		return fmt.Errorf("no external presenter registered for trial type: %s", trialType)
	}

	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to encode trial parameters: %w", err)
	}

	cmd := exec.CommandContext(ctx, proc.Command, proc.Args...)
	cmd.Dir = r.baseDir
	cmd.Stdin = bytes.NewReader(payload)

	// Security: parameters are never interpolated into the command line.
	// They travel via stdin and environment only, so a malicious stimulus
	// value cannot inject flags or shell syntax.
	env := cmd.Environ()
	for k, v := range params {
		env = append(env, fmt.Sprintf("QUADRAT_PARAM_%s=%s", strings.ToUpper(k), formatEnvValue(v)))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start presenter %q: %w", proc.Command, err)
	}

	r.mu.Lock()
	r.current = cmd
	r.mu.Unlock()

	err = cmd.Wait()

	r.mu.Lock()
	r.current = nil
	r.mu.Unlock()

	if err != nil {
		// ForceEnd kills the process; the engine discards the trial either
		// way, so a kill is not a run failure.
		if ctx.Err() != nil || strings.Contains(err.Error(), "signal: killed") {
			return nil
		}
		return fmt.Errorf("presenter failed: %w. Stderr: %s", err, stderr.String())
	}

	finish(parseResult(stdout.String()))
	return nil
}

// ForceEnd kills the in-flight presenter, if any.
func (r *Runner) ForceEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != nil && r.current.Process != nil {
		_ = r.current.Process.Kill()
	}
}

// parseResult auto-detects a JSON object on stdout; any other output is
// wrapped as a plain response.
func parseResult(output string) map[string]any {
	trimmed := strings.TrimSpace(output)
	if strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}") {
		var m map[string]any
		if err := json.Unmarshal([]byte(trimmed), &m); err == nil {
			return m
		}
	}
	if trimmed == "" {
		return nil
	}
	return map[string]any{"output": trimmed}
}

func formatEnvValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", val)
	default:
		if data, err := json.Marshal(val); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", val)
	}
}
