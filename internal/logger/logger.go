// Package logger constructs the CLI's structured logger.
package logger

import (
	"io"
	"log/slog"

	"github.com/lmittmann/tint"
)

// New returns a tint-backed slog logger writing to w.
// Verbose enables debug-level output.
func New(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
	}))
}
