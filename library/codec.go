package library

import (
	"strconv"
	"strings"
)

// Delimiter separates fields of a persisted record. Field values are not
// escaped, so text containing it must be rejected before it reaches the
// catalog (see ValidateField).
const Delimiter = "|"

// Codec converts one record type to and from a single line of text.
type Codec[R Record] interface {
	Encode(r R) string
	Decode(line string) (R, error)
}

// ValidateField returns ErrInvalidField if s cannot be stored verbatim in a
// delimited line.
func ValidateField(s string) error {
	if strings.Contains(s, Delimiter) || strings.ContainsAny(s, "\r\n") {
		return ErrInvalidField
	}
	return nil
}

func malformed(line, reason string) error {
	return &MalformedRecordError{Text: line, Reason: reason}
}

// splitFields splits on every delimiter and requires at least n fields.
// Extra trailing fields are ignored.
func splitFields(line string, n int) ([]string, error) {
	fields := strings.Split(line, Delimiter)
	if len(fields) < n {
		return nil, malformed(line, "expected "+strconv.Itoa(n)+" fields, got "+strconv.Itoa(len(fields)))
	}
	return fields[:n], nil
}

func parseID(line, field string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, malformed(line, "invalid integer "+strconv.Quote(field))
	}
	return id, nil
}

// BookCodec encodes books as id|title|author|isbn|available.
type BookCodec struct{}

func (BookCodec) Encode(b *Book) string {
	avail := "0"
	if b.Available {
		avail = "1"
	}
	return strings.Join([]string{strconv.Itoa(b.ID), b.Title, b.Author, b.ISBN, avail}, Delimiter)
}

func (BookCodec) Decode(line string) (*Book, error) {
	f, err := splitFields(line, 5)
	if err != nil {
		return nil, err
	}
	id, err := parseID(line, f[0])
	if err != nil {
		return nil, err
	}
	return &Book{ID: id, Title: f[1], Author: f[2], ISBN: f[3], Available: f[4] == "1"}, nil
}

// StudentCodec encodes students as id|name. Only the first delimiter
// separates fields, so a name may itself contain one.
type StudentCodec struct{}

func (StudentCodec) Encode(s *Student) string {
	return strconv.Itoa(s.ID) + Delimiter + s.Name
}

func (StudentCodec) Decode(line string) (*Student, error) {
	idStr, name, ok := strings.Cut(line, Delimiter)
	if !ok {
		return nil, malformed(line, "expected 2 fields, got 1")
	}
	id, err := parseID(line, idStr)
	if err != nil {
		return nil, err
	}
	return &Student{ID: id, Name: name}, nil
}

// TransactionCodec encodes transactions as id|bookId|studentId|type|date.
type TransactionCodec struct{}

func (TransactionCodec) Encode(t *Transaction) string {
	return strings.Join([]string{
		strconv.Itoa(t.ID),
		strconv.Itoa(t.BookID),
		strconv.Itoa(t.StudentID),
		string(t.Type),
		t.Date,
	}, Delimiter)
}

func (TransactionCodec) Decode(line string) (*Transaction, error) {
	f, err := splitFields(line, 5)
	if err != nil {
		return nil, err
	}
	var ids [3]int
	for i := range ids {
		if ids[i], err = parseID(line, f[i]); err != nil {
			return nil, err
		}
	}
	return &Transaction{ID: ids[0], BookID: ids[1], StudentID: ids[2], Type: TxType(f[3]), Date: f[4]}, nil
}
