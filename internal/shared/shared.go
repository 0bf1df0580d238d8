// package shared defines shared helpers
package shared

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a new [log.Logger] instance with the specified [io.Writer], with timestamps enabled.
//
// The writer defaults to [os.Stderr]
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := log.Options{ReportTimestamp: true}
	return log.NewWithOptions(w, opts)
}

// NewFileLogger opens path in append mode, creating parent directories as
// needed, and returns a [log.Logger] writing one timestamped line per event
// plus the open [os.File] so the caller can close it at process exit.
//
// [os.File] writes are unbuffered, so every entry reaches disk as soon as it
// is logged; an observer tailing the file sees events in real time.
func NewFileLogger(path string) (*log.Logger, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	opts := log.Options{ReportTimestamp: true, TimeFormat: "2006-01-02 15:04:05"}
	return log.NewWithOptions(f, opts), f, nil
}

// DefaultLogPath returns the default log file location for an invocation
// starting at now: logs/batch_YYYYMMDD_HHMMSS.log under dir.
func DefaultLogPath(dir string, now time.Time) string {
	if dir == "" {
		dir = "logs"
	}
	return filepath.Join(dir, fmt.Sprintf("batch_%s.log", now.Format("20060102_150405")))
}

// WithLogger creates a child [log.Logger] with the specified key-value pairs added to all log entries.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel sets the [log.Level] for the given [log.Logger].
func SetLogLevel(l *log.Logger, ll log.Level) {
	l.SetLevel(ll)
}

// GenerateRunID generates a new v4 [uuid.UUID] as a string, used to tag
// every file-log entry of a single invocation.
func GenerateRunID() string {
	return uuid.New().String()
}
