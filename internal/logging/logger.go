// Package logging builds the application's slog loggers.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New creates the application logger. Output goes to stderr so response
// text on stdout stays clean, and the conventional "error" key is
// shortened to "err".
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}))
}

// NewNop returns a logger that discards everything. Used as the default
// when no logger is injected.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
