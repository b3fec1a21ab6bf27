package logging

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"testing"
)

func TestSessionLoggerWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	l, err := NewSessionLogger(dir)
	if err != nil {
		t.Fatalf("NewSessionLogger failed: %v", err)
	}

	l.Event("startup", map[string]any{"db": "/tmp/x.db"})
	l.Error("delete list", errors.New("list 3 has dependents"))
	l.Error("noop", nil) // dropped
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	f, err := os.Open(l.Path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("line is not JSON: %v", err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(lines))
	}
	if lines[0]["kind"] != "startup" {
		t.Errorf("first line kind: got %v", lines[0]["kind"])
	}
	if lines[1]["op"] != "delete list" {
		t.Errorf("second line op: got %v", lines[1]["op"])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *SessionLogger
	l.Event("x", nil)
	l.Error("y", errors.New("z"))
	if err := l.Close(); err != nil {
		t.Errorf("nil Close: %v", err)
	}
}

func TestEmptyDirRejected(t *testing.T) {
	if _, err := NewSessionLogger(""); err == nil {
		t.Error("empty dir should be rejected")
	}
}
