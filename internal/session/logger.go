package session

import (
	"io"
	"log/slog"
)

// NewLogger returns a structured logger writing text records to w.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
