package library

import "strings"

// BookField selects the book attribute an update or search applies to.
type BookField string

const (
	FieldTitle  BookField = "title"
	FieldAuthor BookField = "author"
	FieldISBN   BookField = "isbn"
)

// ParseBookField accepts a field name or its menu number (1 title, 2 author,
// 3 ISBN).
func ParseBookField(s string) (BookField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "title":
		return FieldTitle, nil
	case "2", "author":
		return FieldAuthor, nil
	case "3", "isbn":
		return FieldISBN, nil
	}
	return "", ErrUnknownField
}

func (f BookField) valid() bool {
	return f == FieldTitle || f == FieldAuthor || f == FieldISBN
}

func (f BookField) value(b *Book) string {
	switch f {
	case FieldTitle:
		return b.Title
	case FieldAuthor:
		return b.Author
	case FieldISBN:
		return b.ISBN
	}
	return ""
}

func (f BookField) set(b *Book, v string) {
	switch f {
	case FieldTitle:
		b.Title = v
	case FieldAuthor:
		b.Author = v
	case FieldISBN:
		b.ISBN = v
	}
}
