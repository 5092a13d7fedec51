package cli

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/seipaa/Predictive-maintenance-for-motor-electric/internal/domain"
)

// newLogger builds the process logger. MOTORDIAG_DEBUG=true forces debug.
func newLogger(cfg domain.LoggingConfig, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv(EnvPrefix+"_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(w, handlerOpts))
}
