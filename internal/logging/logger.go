// Package logging is the process-wide leveled logger. It is configured once
// at startup; until Initialize runs, every call is a no-op, which lets early
// config failures surface on their own without a logger in the way.
package logging

import (
	"io"
	"log"
	"os"
)

type Logger struct {
	debug bool
	out   *log.Logger
}

var global *Logger

// Initialize wires the global logger. Debug output stays suppressed unless
// debugMode is set.
func Initialize(debugMode bool) {
	global = newLogger(debugMode, os.Stdout)
}

func newLogger(debugMode bool, w io.Writer) *Logger {
	return &Logger{
		debug: debugMode,
		out:   log.New(w, "", log.LstdFlags),
	}
}

func (l *Logger) printf(prefix, format string, args ...interface{}) {
	l.out.Printf(prefix+format, args...)
}

func Info(format string, args ...interface{}) {
	if global != nil {
		global.printf("", format, args...)
	}
}

// Warn records a recoverable problem, like a lost heartbeat.
func Warn(format string, args ...interface{}) {
	if global != nil {
		global.printf("WARN: ", format, args...)
	}
}

func Debug(format string, args ...interface{}) {
	if global != nil && global.debug {
		global.printf("DEBUG: ", format, args...)
	}
}

func Error(format string, args ...interface{}) {
	if global != nil {
		global.printf("ERROR: ", format, args...)
	}
}

func IsDebugEnabled() bool {
	return global != nil && global.debug
}
