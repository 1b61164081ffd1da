// Package logger provides leveled logging for sercha-site.
//
// Debug, section, info and warning lines are printed only in verbose mode,
// which traces the crawl and retrieval pipelines. Errors are always printed.
// Long-running commands such as serve turn on timestamps so interleaved
// crawl batches and requests can be told apart.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int

// Log levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the tag printed in front of a line.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

var (
	mu         sync.Mutex
	verbose    bool
	timestamps bool
	output     io.Writer = os.Stderr
	now                  = time.Now
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose reports whether verbose mode is enabled.
func IsVerbose() bool {
	mu.Lock()
	defer mu.Unlock()
	return verbose
}

// SetTimestamps prefixes every line with an RFC 3339 UTC timestamp.
func SetTimestamps(on bool) {
	mu.Lock()
	defer mu.Unlock()
	timestamps = on
}

// SetOutput redirects log lines. Defaults to os.Stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

// Debug traces pipeline internals.
func Debug(format string, args ...any) { logf(LevelDebug, format, args...) }

// Info reports progress.
func Info(format string, args ...any) { logf(LevelInfo, format, args...) }

// Warn reports a recoverable problem, such as a single failed URL.
func Warn(format string, args ...any) { logf(LevelWarn, format, args...) }

// Error reports a failure. It is printed regardless of verbose mode.
func Error(format string, args ...any) { logf(LevelError, format, args...) }

// Section prints a header separating pipeline stages in verbose mode.
func Section(name string) {
	mu.Lock()
	defer mu.Unlock()
	if !verbose {
		return
	}
	fmt.Fprintf(output, "\n%s=== %s ===\n", stampLocked(), name)
}

func logf(level Level, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if level < LevelError && !verbose {
		return
	}
	fmt.Fprintf(output, "%s[%s] %s\n", stampLocked(), level, fmt.Sprintf(format, args...))
}

func stampLocked() string {
	if !timestamps {
		return ""
	}
	return now().UTC().Format(time.RFC3339) + " "
}
