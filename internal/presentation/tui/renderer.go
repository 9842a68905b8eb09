// Package tui holds the terminal presentation pieces of the chat REPL.
package tui

import (
	"github.com/charmbracelet/glamour"
)

// NewRenderer returns a markdown renderer for bot responses, degrading
// to plain text when a terminal renderer cannot be built.
func NewRenderer() func(string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	if err != nil {
		return func(s string) string { return s + "\n" }
	}
	return func(s string) string {
		rendered, err := r.Render(s)
		if err != nil {
			return s + "\n"
		}
		return rendered
	}
}
