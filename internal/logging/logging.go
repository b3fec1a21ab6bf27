// Package logging writes JSONL session logs. The TUI owns the terminal,
// so failures are recorded here instead of stderr.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SessionLogger appends one JSON object per event to a per-session file.
// A nil logger is valid and drops everything.
type SessionLogger struct {
	Path string
	file *os.File
}

// NewSessionLogger creates the log directory and a timestamped file.
func NewSessionLogger(dir string) (*SessionLogger, error) {
	if dir == "" {
		return nil, fmt.Errorf("log dir is empty")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("session-%s.jsonl", time.Now().Format("20060102-150405")))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}
	return &SessionLogger{Path: path, file: file}, nil
}

type event struct {
	Time   string         `json:"time"`
	Kind   string         `json:"kind"`
	Op     string         `json:"op,omitempty"`
	Error  string         `json:"error,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

func (l *SessionLogger) write(e event) {
	if l == nil || l.file == nil {
		return
	}
	e.Time = time.Now().UTC().Format(time.RFC3339)
	line, err := json.Marshal(e)
	if err != nil {
		return
	}
	l.file.Write(append(line, '\n'))
}

// Event records an application event with optional fields.
func (l *SessionLogger) Event(kind string, fields map[string]any) {
	l.write(event{Kind: kind, Fields: fields})
}

// Error records a failed operation.
func (l *SessionLogger) Error(op string, err error) {
	if err == nil {
		return
	}
	l.write(event{Kind: "error", Op: op, Error: err.Error()})
}

// Close closes the log file.
func (l *SessionLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
