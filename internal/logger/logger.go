// Package logger writes leveled progress output for the CLI and engine.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// VerboseLevel represents the verbosity level for logging
type VerboseLevel int

const (
	// VerboseSilent means no verbose output
	VerboseSilent VerboseLevel = 0
	// VerboseNormal means standard verbose output (-v)
	VerboseNormal VerboseLevel = 1
	// VerboseVery means detailed debugging output (-vv)
	VerboseVery VerboseLevel = 2
)

// Logger handles verbose output at different levels
type Logger struct {
	level VerboseLevel
	out   io.Writer
	mu    sync.Mutex
}

// NewLogger creates a logger writing to stderr at the given verbosity.
func NewLogger(level int) *Logger {
	return &Logger{level: VerboseLevel(level), out: os.Stderr}
}

// New creates a logger writing to w.
func New(w io.Writer, level int) *Logger {
	return &Logger{level: VerboseLevel(level), out: w}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, 0)
}

// Level returns the configured verbosity.
func (l *Logger) Level() VerboseLevel {
	return l.level
}

// IsVerbose returns true if verbose mode is enabled (-v or -vv)
func (l *Logger) IsVerbose() bool {
	return l.level >= VerboseNormal
}

// IsVeryVerbose returns true if very verbose mode is enabled (-vv)
func (l *Logger) IsVeryVerbose() bool {
	return l.level >= VerboseVery
}

func (l *Logger) printf(prefix, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, prefix+format+"\n", args...)
}

// V logs a message at verbose level (-v)
func (l *Logger) V(format string, args ...any) {
	if l.IsVerbose() {
		l.printf("[*] ", format, args...)
	}
}

// VV logs a message at very verbose level (-vv)
func (l *Logger) VV(format string, args ...any) {
	if l.IsVeryVerbose() {
		l.printf("[VV] ", format, args...)
	}
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.printf("[+] ", format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.printf("[!] ", format, args...)
}

// Section logs a section header for very verbose mode
func (l *Logger) Section(title string) {
	if l.IsVeryVerbose() {
		l.printf("\n[VV] === ", "%s ===", title)
	}
}

// Detail logs an indented detail line for very verbose mode
func (l *Logger) Detail(format string, args ...any) {
	if l.IsVeryVerbose() {
		l.printf("[VV]   -> ", format, args...)
	}
}
