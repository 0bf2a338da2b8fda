// Package audit keeps an append-only trail of canary deployments,
// removals and API token changes.
//
// Entries are newline-delimited JSON, by default at ~/.tripwire/audit.log.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Action describes what happened.
type Action string

const (
	ActionDeploy      Action = "deploy"
	ActionRemove      Action = "remove"
	ActionTokenWrite  Action = "token_write"
	ActionTokenRead   Action = "token_read"
	ActionTokenDelete Action = "token_delete"
)

// Entry is a single audit log record.
type Entry struct {
	Timestamp time.Time `json:"ts"`
	Action    Action    `json:"action"`
	Type      string    `json:"type,omitempty"` // credential type, empty for token actions
	Name      string    `json:"name,omitempty"`
	Target    string    `json:"target,omitempty"`
	Path      string    `json:"path,omitempty"`
	Actor     string    `json:"actor,omitempty"` // "cli", "refresh"
	Error     string    `json:"error,omitempty"`
}

// Recorder accepts audit entries.
type Recorder interface {
	Log(Entry) error
}

// Discard drops every entry.
var Discard Recorder = discard{}

type discard struct{}

func (discard) Log(Entry) error { return nil }

// Logger writes audit entries to an append-only file.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewLogger creates or opens an audit log file for appending. The parent
// directory is created owner-only if missing.
func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating audit log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	return &Logger{file: f, path: path}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.path }

// Log writes an audit entry.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing audit entry: %w", err)
	}
	return nil
}

// Close closes the audit log file.
func (l *Logger) Close() error {
	return l.file.Close()
}
