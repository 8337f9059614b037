// Package logging builds the process-wide slog.Logger (SPEC_FULL §2):
// records below the configured level are dropped; of the rest, this
// module's own logs pass, while third-party library logs pass only when
// the configured level is debug. Grounded on the teacher's pkg/logger,
// trimmed to the filtering behavior — the coloring/terminal-detection
// machinery there is presentation, not a contract this module needs.
package logging

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/localflow/core/config"
)

const modulePrefix = "github.com/localflow/core"

// ParseLevel converts a config-file level string to an slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// filteringHandler drops every record below the configured level; at or
// above it, this module's logs pass and third-party library logs are
// filtered unless the configured level is debug.
type filteringHandler struct {
	handler  slog.Handler
	minLevel slog.Level
}

func (h *filteringHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.minLevel && h.handler.Enabled(ctx, level)
}

func (h *filteringHandler) Handle(ctx context.Context, record slog.Record) error {
	if h.minLevel <= slog.LevelDebug || fromThisModule(record.PC) {
		return h.handler.Handle(ctx, record)
	}
	return nil
}

func (h *filteringHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &filteringHandler{handler: h.handler.WithAttrs(attrs), minLevel: h.minLevel}
}

func (h *filteringHandler) WithGroup(name string) slog.Handler {
	return &filteringHandler{handler: h.handler.WithGroup(name), minLevel: h.minLevel}
}

func fromThisModule(pc uintptr) bool {
	if pc == 0 {
		return false
	}
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return false
	}
	return strings.Contains(fn.Name(), modulePrefix)
}

// New builds the process-wide logger from LogConfig, writing to output
// (the CLI commands pass os.Stderr).
func New(cfg config.LogConfig, output *os.File) *slog.Logger {
	level := ParseLevel(cfg.Level)
	base := slog.NewTextHandler(output, &slog.HandlerOptions{Level: level, AddSource: false})
	return slog.New(&filteringHandler{handler: base, minLevel: level})
}
