package library

import (
	"os"
	"sync"
	"time"
)

// AuditLog appends one timestamped line per mutating operation to a text
// file and remembers the lines written by this process.
type AuditLog struct {
	path string
	now  func() time.Time

	mu      sync.Mutex
	entries []string
}

// NewAuditLog returns an audit log appending to path. A nil now uses time.Now.
func NewAuditLog(path string, now func() time.Time) *AuditLog {
	if now == nil {
		now = time.Now
	}
	return &AuditLog{path: path, now: now}
}

// Path returns the file the log appends to.
func (a *AuditLog) Path() string { return a.path }

// Record appends "YYYY-M-D H:M:S: description". The entry is kept in memory
// even if the file write fails.
func (a *AuditLog) Record(description string) error {
	entry := formatTimestamp(a.now()) + ": " + description

	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &PersistenceError{Op: "open", Path: a.path, Err: err}
	}
	if _, err := f.WriteString(entry + "\n"); err != nil {
		_ = f.Close()
		return &PersistenceError{Op: "append", Path: a.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistenceError{Op: "close", Path: a.path, Err: err}
	}
	return nil
}

// Entries returns the lines recorded by this process, oldest first.
func (a *AuditLog) Entries() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}
