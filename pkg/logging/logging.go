// Package logging provides the process-wide logger used by cmd/ entry
// points and long-running watchers. It mirrors the teacher's plain
// log.Printf/log.Fatalf idiom rather than introducing a structured
// logging dependency the rest of the pack does not reach for.
package logging

import (
	"log"
	"os"
)

// Logger is a thin named wrapper around the standard library logger.
type Logger struct {
	prefix string
	std    *log.Logger
}

// New returns a Logger that prefixes every line with name, e.g. "[managed]".
func New(name string) *Logger {
	return &Logger{
		prefix: "[" + name + "] ",
		std:    log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *Logger) Printf(format string, args ...interface{}) {
	l.std.Printf(l.prefix+format, args...)
}

func (l *Logger) Println(args ...interface{}) {
	l.std.Println(append([]interface{}{l.prefix}, args...)...)
}

// Warnf logs a recoverable failure; callers use this for best-effort
// paths (peer propagation, config watcher glitches) that must not abort.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.std.Printf(l.prefix+"warning: "+format, args...)
}

// Fatalf logs and exits the process. Reserved for cmd/ bootstrap paths
// where there is no sensible way to continue (matches the teacher's
// cmd/bootstrap/main.go use of log.Fatalf for unrecoverable setup errors).
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.std.Fatalf(l.prefix+format, args...)
}
