package observability

import (
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/hours2days/internal/config"
)

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT. Records
// go to stderr and, when extra is non-nil, to extra as well.
func NewLogger(cfg *config.Config, extra io.Writer) *slog.Logger {
	var w io.Writer = os.Stderr
	if extra != nil {
		w = io.MultiWriter(os.Stderr, extra)
	}
	return newLogger(w, cfg.LogLevel, cfg.LogFormat)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
