// Package logger adapts zerolog to the domain.Logger interface used
// throughout db-yard.
package logger

import (
	"os"

	"github.com/rs/zerolog"
)

// Verbosity is the --verbose level (spec §6). The logger records it but
// does not filter output by it.
type Verbosity string

const (
	Essential     Verbosity = "essential"
	Comprehensive Verbosity = "comprehensive"
)

// Zerolog writes structured log messages via github.com/rs/zerolog.
type Zerolog struct {
	log       zerolog.Logger
	verbosity Verbosity
}

// New creates a logger writing to w (typically os.Stderr). When human is
// true, output goes through zerolog.ConsoleWriter instead of raw JSON lines;
// the CLI passes true when stderr is a terminal.
func New(w *os.File, verbosity Verbosity, human bool) *Zerolog {
	var l zerolog.Logger
	if human {
		l = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}).With().Timestamp().Logger()
	} else {
		l = zerolog.New(w).With().Timestamp().Logger()
	}
	return &Zerolog{log: l, verbosity: verbosity}
}

// Info logs an informational message. Every message is emitted at either
// verbosity; Info does not filter by the --verbose level.
func (l *Zerolog) Info(msg string, args ...any) {
	ev := l.log.Info()
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		if key == "" {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}

// Error logs an error message. Errors are always emitted regardless of
// verbosity.
func (l *Zerolog) Error(msg string, args ...any) {
	ev := l.log.Error()
	for i := 0; i+1 < len(args); i += 2 {
		key, _ := args[i].(string)
		if key == "" {
			continue
		}
		ev = ev.Interface(key, args[i+1])
	}
	ev.Msg(msg)
}
