// Package log exports logging primitives used throughout the naming
// server. It mimics Go's standard log package closely enough to be a
// drop-in replacement at call sites, but is backed by logrus so output can
// be leveled and, in production, shipped structured.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the interface for logging messages at a fixed level.
type Logger interface {
	// Printf writes a formatted message to the log.
	Printf(format string, v ...interface{})

	// Print writes a message to the log.
	Print(v ...interface{})

	// Println writes a line to the log.
	Println(v ...interface{})

	// Fatal writes a message to the log and exits the process.
	Fatal(v ...interface{})

	// Fatalf writes a formatted message to the log and exits the process.
	Fatalf(format string, v ...interface{})
}

// Level is the level of logging.
type Level int

// The logging levels, ordered least to most severe.
const (
	Ldebug Level = iota
	Linfo
	Lerror
	Ldisabled
)

// Pre-allocated loggers at each level, the usual call sites.
var (
	Debug = newLogger(Ldebug)
	Info  = newLogger(Linfo)
	Error = newLogger(Lerror)

	base  = logrus.New()
	level = Linfo
)

func init() {
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

type logger struct {
	level Level
}

var _ Logger = (*logger)(nil)

func newLogger(l Level) *logger {
	return &logger{level: l}
}

func (l *logger) enabled() bool {
	return l.level >= level
}

func (l *logger) entry() *logrus.Entry {
	return logrus.NewEntry(base)
}

func (l *logger) Printf(format string, v ...interface{}) {
	if !l.enabled() {
		return
	}
	logAt(l.level, l.entry()).Printf(format, v...)
}

func (l *logger) Print(v ...interface{}) {
	if !l.enabled() {
		return
	}
	logAt(l.level, l.entry()).Print(v...)
}

func (l *logger) Println(v ...interface{}) {
	if !l.enabled() {
		return
	}
	logAt(l.level, l.entry()).Println(v...)
}

func (l *logger) Fatal(v ...interface{}) {
	l.entry().Fatal(v...)
}

func (l *logger) Fatalf(format string, v ...interface{}) {
	l.entry().Fatalf(format, v...)
}

func logAt(l Level, e *logrus.Entry) *logrus.Entry {
	switch l {
	case Ldebug:
		return e.WithField("level", "debug")
	case Lerror:
		return e.WithField("level", "error")
	default:
		return e.WithField("level", "info")
	}
}

// SetLevel sets the logging level from its string name: "debug", "info",
// "error", or "disabled". Any other name is rejected with an error and
// leaves the level unchanged.
func SetLevel(s string) error {
	switch s {
	case "debug":
		level = Ldebug
	case "info":
		level = Linfo
	case "error":
		level = Lerror
	case "disabled":
		level = Ldisabled
	default:
		return &levelError{s}
	}
	return nil
}

// CurrentLevel returns the current logging level's string name.
func CurrentLevel() string {
	switch level {
	case Ldebug:
		return "debug"
	case Linfo:
		return "info"
	case Lerror:
		return "error"
	case Ldisabled:
		return "disabled"
	}
	return "unknown"
}

type levelError struct{ s string }

func (e *levelError) Error() string { return "invalid log level: " + e.s }
