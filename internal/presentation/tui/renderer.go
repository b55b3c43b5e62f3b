package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a function that renders markdown stimuli using glamour.
// The signature matches runner.ContentRenderer so it plugs straight into the
// text presenter.
func NewRenderer() func(string) (string, error) {
	// Automatically detect light/dark background
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}
