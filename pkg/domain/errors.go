package domain

import (
	"errors"
	"fmt"
)

// ErrAborted is returned by a run that was cancelled via Abort. The
// Collection retains exactly the trials that had already finalized.
var ErrAborted = errors.New("run aborted")

// ErrRunNotFound is returned when a run ID cannot be found in a result store.
var ErrRunNotFound = errors.New("run not found")

// MissingVariableError reports a variable reference that resolved in no
// enclosing scope. Fatal to the run.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("timeline variable %q not bound in any enclosing scope", e.Name)
}

// MalformedDescriptionError reports a structurally invalid timeline
// description. Raised at expansion time, before any trial runs.
type MalformedDescriptionError struct {
	Path   string // dotted child-index path from the root, e.g. "timeline.2.0"
	Reason string
}

func (e *MalformedDescriptionError) Error() string {
	return fmt.Sprintf("malformed timeline description at %s: %s", e.Path, e.Reason)
}

// CallbackError wraps an error raised by a user-supplied hook, conditional
// or loop function. It is surfaced to the caller of Run, aborting the
// current node's remaining work.
type CallbackError struct {
	Hook string // which callback failed, e.g. "on_finish", "conditional_function"
	Err  error
}

func (e *CallbackError) Error() string {
	return fmt.Sprintf("callback %s: %v", e.Hook, e.Err)
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
