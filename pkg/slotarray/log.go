package slotarray

import (
	"io"
	"log/slog"
)

// NewTextLogger returns a human-readable logger writing to w at level.
// Pass it as [Options.Logger] or [ReaderOptions.Logger].
func NewTextLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// storeLogger tags l with the store's data path. A nil l discards.
func storeLogger(l *slog.Logger, path string) *slog.Logger {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}

	return l.With(slog.String("store", path))
}
