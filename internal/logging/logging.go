// Package logging builds the zerolog logger used across pubdraft.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const permission = 0664

// Formats accepted by Options.Format.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Options describe where and how to log.
type Options struct {
	Level  string    // trace, debug, info, warn, error (default info)
	Format string    // console or json (default console)
	Path   string    // append to this file instead of Output
	Output io.Writer // default os.Stderr
}

// Logger is a configured logger and the file it writes to, if any.
type Logger struct {
	zerolog.Logger
	file *os.File
}

// New builds a logger from opts. The level is applied globally so that
// SetLevel affects every logger derived from it.
func New(opts Options) (*Logger, error) {
	if err := SetLevel(opts.Level); err != nil {
		return nil, err
	}
	l := &Logger{}
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	if opts.Path != "" {
		f, err := os.OpenFile(opts.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, permission)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		l.file = f
		w = zerolog.SyncWriter(f)
	}
	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		if opts.Path == "" {
			w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
		}
	case FormatJSON:
	default:
		return nil, fmt.Errorf("logging: unknown format %q", opts.Format)
	}
	l.Logger = zerolog.New(w).With().Timestamp().Logger()
	return l, nil
}

// SetLevel changes the global log level. An empty level means info.
func SetLevel(level string) error {
	if level == "" {
		level = zerolog.InfoLevel.String()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
