// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

type Options struct {
	Level   string
	Verbose bool
	// File, when set, receives a JSON copy of every entry.
	File string
}

// ParseLevel accepts zerolog level names. Empty means warn.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.WarnLevel, nil
	}
	if s == "warning" {
		s = "warn"
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q (use trace, debug, info, warn, error or disabled)", s)
	}
	return lvl, nil
}

// New writes to stderr, using the console format on a terminal. The returned
// closer releases the log file, if one was opened.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}
	if opts.Verbose && lvl > zerolog.DebugLevel {
		lvl = zerolog.DebugLevel
	}
	return build(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), opts.File, lvl)
}

func build(stderr io.Writer, console bool, file string, lvl zerolog.Level) (zerolog.Logger, io.Closer, error) {
	var out io.Writer = stderr
	if console {
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.Kitchen}
	}
	var closer io.Closer = nopCloser{}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), closer, fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
