package library

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateISBN       = errors.New("a book with this ISBN already exists")
	ErrNotFound            = errors.New("not found")
	ErrBookCheckedOut      = errors.New("book is currently checked out")
	ErrAlreadyBorrowed     = errors.New("book is already borrowed")
	ErrNotBorrowed         = errors.New("book is not borrowed")
	ErrMissingBorrowRecord = errors.New("no borrow transaction found for book")
	ErrUnknownField        = errors.New("unknown book field")
	ErrInvalidField        = errors.New("field contains a reserved character")
)

// MalformedRecordError reports a persisted line that could not be decoded.
type MalformedRecordError struct {
	Path   string
	Line   int
	Text   string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("malformed record %q: %s", e.Text, e.Reason)
	}
	return fmt.Sprintf("%s:%d: malformed record %q: %s", e.Path, e.Line, e.Text, e.Reason)
}

// PersistenceError reports a file that could not be read or written.
// The in-memory mutation that triggered a failed save is not rolled back.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
