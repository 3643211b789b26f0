// Package logging builds the application's *slog.Logger.
//
// Every package logs through log/slog. Only the handler behind it changes:
//
//	json   → slog.NewJSONHandler (production, log shippers)
//	text   → slog.NewTextHandler (key=value)
//	pretty → charmbracelet/log, colourised for a terminal
//
// When File is set, output is also written to a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects level, format and the optional rotated log file.
type Options struct {
	Level  string // debug, info, warn, error
	Format string // json, text, pretty
	File   string // empty disables file output

	MaxSizeMB  int // rotate after this many megabytes
	MaxBackups int // rotated files to keep
	MaxAgeDays int // days to keep rotated files
}

// New returns a logger writing to w (and to opts.File when set) plus a
// close function that flushes and closes the log file. The close function is
// never nil.
func New(w io.Writer, opts Options) (*slog.Logger, func() error, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(orDefault(opts.Level, "info"))); err != nil {
		return nil, nil, fmt.Errorf("logging: invalid level %q: %w", opts.Level, err)
	}

	closeFn := func() error { return nil }
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefaultInt(opts.MaxSizeMB, 100),
			MaxBackups: orDefaultInt(opts.MaxBackups, 5),
			MaxAge:     orDefaultInt(opts.MaxAgeDays, 28),
			Compress:   true,
		}
		w = io.MultiWriter(w, rotator)
		closeFn = rotator.Close
	}

	var handler slog.Handler
	switch strings.ToLower(orDefault(opts.Format, "text")) {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "pretty":
		// *log.Logger implements slog.Handler; its levels share slog's values.
		handler = log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           log.Level(level),
		})
	default:
		_ = closeFn()
		return nil, nil, fmt.Errorf("logging: unknown format %q (want json, text or pretty)", opts.Format)
	}

	return slog.New(handler), closeFn, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
