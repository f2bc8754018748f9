package logger

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// New creates a new structured logger (w/ specified debug level). Debug
// output goes to stderr, colored when stderr is a terminal; without debug
// everything is discarded.
func New(debug bool) *slog.Logger {
	if !debug {
		// create a handler that discards all log messages
		handler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
			Level: slog.LevelError,
		})
		return slog.New(handler)
	}

	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: "15:04:05.000",
		}))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}
