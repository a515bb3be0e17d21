package app

import (
	"io"
	"log/slog"
)

// newLogger builds the app's isolated slog.Logger. The process-wide default
// logger is left untouched, so several App instances with different levels
// and formats can coexist in one test binary. Unknown levels fall back to
// info; anything but "json" selects the text handler.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if formatStr == "json" {
		return slog.New(slog.NewJSONHandler(outW, opts))
	}
	return slog.New(slog.NewTextHandler(outW, opts))
}
