package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/alnah/vstprep/internal/config"
)

// parseLogLevel maps a --log-level name to a slog level.
func parseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q (valid: %s)", ErrInvalidLogLevel, name, strings.Join(config.LogLevels, ", "))
	}
}

// newLogger returns a text logger writing to w at level.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
