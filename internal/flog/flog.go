// Package flog builds the slog.Handler used for low-volume, Debug-level
// tracing inside the coroutine deserializer and the tree matcher (probe
// start, variant selection, matching-phase transitions). It is
// silent unless explicitly turned on via fconfig.LogConfig.
package flog

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// New builds a [slog.Logger] from an fconfig.LogConfig-shaped level/format
// pair. Handler construction mirrors _examples/MacroPower-x/log/log.go:
// JSON vs. logfmt via slog's two built-in handlers, with "disabled"
// producing a logger that discards everything.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	if format == "disabled" {
		return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})), nil
	}

	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	handler, err := handlerFor(w, lvl, format)
	if err != nil {
		return nil, err
	}

	return slog.New(handler), nil
}

func handlerFor(w io.Writer, lvl slog.Level, format string) (slog.Handler, error) {
	switch format {
	case "json":
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}), nil
	case "logfmt", "":
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	case "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

// Discard is a logger that drops everything, used as the zero-value
// default so packages never need a nil check before logging.
var Discard = slog.New(slog.NewTextHandler(io.Discard, nil))
