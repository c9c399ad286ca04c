// Package logx provides the structured, component-scoped event logger used
// across the publisher and consumer daemons.
package logx

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

func init() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
}

// Init sets the global log level and output. With logFile empty, output
// goes to stderr through the human-readable console writer, colored only
// when stderr is a terminal. With logFile set, every line is appended to that file as
// plain JSON (the "logs" CLI command tails it back out). level is one of
// zerolog's named levels ("debug", "info", "warn", "error"); an
// unrecognized level falls back to info.
func Init(level, logFile string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if logFile == "" {
		w := zerolog.ConsoleWriter{Out: os.Stderr, NoColor: !isTTY(os.Stderr)}
		base = zerolog.New(w).With().Timestamp().Logger()
		return nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open log file %s", logFile)
	}
	base = zerolog.New(f).With().Timestamp().Logger()
	return nil
}

var base = zerolog.New(os.Stderr).With().Timestamp().Logger()

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Event is a leveled, printf-style logger scoped to one component
// ("orchestrator", "archive-prover", ...) and, for consumer runs, one
// run ID. Call shape is printf-style throughout:
// log.Info("..."), log.Debug("+ applying %v", x), log.Error("...").
type Event struct {
	l zerolog.Logger
}

// Component returns a new Event scoped to the named component.
func Component(name string) *Event {
	return &Event{l: base.With().Str("component", name).Logger()}
}

// WithRun returns a copy of e additionally scoped to a run ID, so every
// line emitted during one consumer attempt can be grepped together.
func (e *Event) WithRun(runID string) *Event {
	return &Event{l: e.l.With().Str("run_id", runID).Logger()}
}

// WithSegment returns a copy of e additionally scoped to a segment_id.
func (e *Event) WithSegment(segmentID int) *Event {
	return &Event{l: e.l.With().Int("segment_id", segmentID).Logger()}
}

func (e *Event) Debug(format string, args ...any) { e.l.Debug().Msg(fmt.Sprintf(format, args...)) }
func (e *Event) Info(format string, args ...any)  { e.l.Info().Msg(fmt.Sprintf(format, args...)) }
func (e *Event) Warning(format string, args ...any) {
	e.l.Warn().Msg(fmt.Sprintf(format, args...))
}
func (e *Event) Error(format string, args ...any) { e.l.Error().Msg(fmt.Sprintf(format, args...)) }
