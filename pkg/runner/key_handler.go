package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/quadrat/pkg/ports"
	"golang.org/x/term"
)

// KeyHandler presents trials that expect a single key press. When the input
// is a real terminal it is switched to raw mode for the duration of the
// trial, so the press registers without a newline.
//
// Recognized parameters:
//   - stimulus: text shown before waiting (rendered if a Renderer is set)
//   - choices: list of accepted keys; other presses are ignored
//   - trial_duration: timeout in milliseconds; on expiry the trial ends
//     with a nil response and timeout=true
type KeyHandler struct {
	Input    io.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	keyCh     chan keyResult
	startOnce sync.Once
	force     chan struct{}
}

type keyResult struct {
	key string
	err error
}

// NewKeyHandler creates a single-keypress presenter.
func NewKeyHandler(r io.Reader, w io.Writer) *KeyHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &KeyHandler{
		Input:  r,
		Writer: w,
		keyCh:  make(chan keyResult),
		force:  make(chan struct{}, 1),
	}
	return h
}

func (h *KeyHandler) initPump() {
	h.startOnce.Do(func() {
		go h.pump()
	})
}

func (h *KeyHandler) pump() {
	buf := make([]byte, 1)
	for {
		n, err := h.Input.Read(buf)
		if n > 0 {
			h.keyCh <- keyResult{key: string(buf[:n])}
		}
		if err != nil {
			h.keyCh <- keyResult{err: err}
			if err == io.EOF {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// RunTrial shows the stimulus and waits for an accepted key press, the
// trial_duration deadline, or an abort.
func (h *KeyHandler) RunTrial(ctx context.Context, params map[string]any, finish ports.FinishFunc) error {
	if stimulus, ok := params["stimulus"].(string); ok {
		output := stimulus
		if h.Renderer != nil {
			if rendered, err := h.Renderer(stimulus); err == nil {
				output = rendered
			}
		}
		fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	}

	restore, err := h.enterRawMode()
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer restore()

	h.initPump()

	var deadline <-chan time.Time
	if ms, ok := toMillis(params["trial_duration"]); ok {
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		deadline = timer.C
	}

	choices := acceptedKeys(params["choices"])
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-h.force:
			return nil
		case <-deadline:
			finish(map[string]any{
				"response": nil,
				"rt":       nil,
				"timeout":  true,
			})
			return nil
		case res := <-h.keyCh:
			if res.err != nil {
				return res.err
			}
			if len(choices) > 0 && !choices[res.key] {
				continue
			}
			finish(map[string]any{
				"response": res.key,
				"rt":       time.Since(start).Milliseconds(),
			})
			return nil
		}
	}
}

// ForceEnd unblocks a pending trial without reporting a response.
func (h *KeyHandler) ForceEnd() {
	select {
	case h.force <- struct{}{}:
	default:
	}
}

// enterRawMode switches a terminal input into raw mode and returns the
// restore func. Non-terminal inputs (tests, pipes) pass through untouched.
func (h *KeyHandler) enterRawMode() (func(), error) {
	f, ok := h.Input.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return func() {}, nil
	}
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return nil, err
	}
	return func() {
		_ = term.Restore(int(f.Fd()), state)
	}, nil
}

func acceptedKeys(raw any) map[string]bool {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	keys := make(map[string]bool, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			keys[s] = true
		}
	}
	return keys
}

// toMillis accepts the numeric types YAML and callback parameters produce.
func toMillis(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}
