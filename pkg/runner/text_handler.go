package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/quadrat/pkg/ports"
)

// ContentRenderer transforms stimulus text before it is written out.
// This allows for TUI rendering (markdown to ANSI) without coupling the
// presenter to a terminal library.
type ContentRenderer func(string) (string, error)

// TextHandler presents trials on a line-based text interface: the stimulus
// is printed, and the participant answers with a full line. The response and
// its latency in milliseconds are reported back as the trial record.
type TextHandler struct {
	Reader   *bufio.Reader
	Writer   io.Writer
	Renderer ContentRenderer

	inputChan chan inputResult
	startOnce sync.Once
	force     chan struct{}
}

type inputResult struct {
	text string
	err  error
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithTextHandlerRenderer configures the stimulus renderer.
func WithTextHandlerRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// NewTextHandler creates a presenter for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{
		Reader: bufio.NewReader(r),
		Writer: w,
		force:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) initPump() {
	h.startOnce.Do(func() {
		h.inputChan = make(chan inputResult)
		go h.pump()
	})
}

func (h *TextHandler) pump() {
	for {
		text, err := h.Reader.ReadString('\n')

		if text != "" {
			h.inputChan <- inputResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(h.inputChan)
				return
			}
			h.inputChan <- inputResult{err: err}
			// Backoff on persistent failure to prevent CPU spikes
			time.Sleep(50 * time.Millisecond)
		}
	}
}

// RunTrial prints the stimulus, waits for one line of input, and reports
// the sanitized response with its latency.
func (h *TextHandler) RunTrial(ctx context.Context, params map[string]any, finish ports.FinishFunc) error {
	if err := h.showStimulus(params); err != nil {
		return err
	}
	h.initPump()

	start := time.Now()
	for {
		fmt.Fprint(h.Writer, "> ")

		select {
		case <-ctx.Done():
			return nil
		case <-h.force:
			return nil
		case res, ok := <-h.inputChan:
			if !ok {
				return io.EOF
			}
			if res.err != nil {
				return res.err
			}

			clean, err := SanitizeInput(strings.TrimSpace(res.text))
			if err != nil {
				fmt.Fprintf(h.Writer, "Error: %v. Please try again.\n", err)
				continue
			}

			finish(map[string]any{
				"response": clean,
				"rt":       time.Since(start).Milliseconds(),
			})
			return nil
		}
	}
}

// ForceEnd unblocks a pending trial without reporting a response.
func (h *TextHandler) ForceEnd() {
	select {
	case h.force <- struct{}{}:
	default:
	}
}

func (h *TextHandler) showStimulus(params map[string]any) error {
	stimulus, ok := params["stimulus"].(string)
	if !ok {
		return nil
	}

	output := stimulus
	if h.Renderer != nil {
		if rendered, err := h.Renderer(stimulus); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}
