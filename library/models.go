package library

import (
	"fmt"
	"time"
)

// Book represents metadata and current availability of a book in the catalog.
type Book struct {
	ID        int    `json:"id" db:"id"`
	Title     string `json:"title" db:"title"`
	Author    string `json:"author" db:"author"`
	ISBN      string `json:"isbn" db:"isbn"`
	Available bool   `json:"available" db:"available"`
}

// Student represents a registered borrower.
type Student struct {
	ID   int    `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// TxType is the kind of a circulation transaction.
type TxType string

const (
	TxBorrow TxType = "borrow"
	TxReturn TxType = "return"
)

// Transaction is an append-only circulation record. BookID and StudentID
// are not required to reference existing records.
type Transaction struct {
	ID        int    `json:"id" db:"id"`
	BookID    int    `json:"book_id" db:"book_id"`
	StudentID int    `json:"student_id" db:"student_id"`
	Type      TxType `json:"type" db:"type"`
	Date      string `json:"date" db:"date"`
}

// TransactionView is a Transaction annotated with the current title of its book.
type TransactionView struct {
	Transaction
	BookTitle string `json:"book_title"`
}

// UnknownTitle is shown for transactions whose book no longer exists.
const UnknownTitle = "Unknown"

func (b *Book) RecordID() int      { return b.ID }
func (b *Book) setRecordID(id int) { b.ID = id }

func (s *Student) RecordID() int      { return s.ID }
func (s *Student) setRecordID(id int) { s.ID = id }

func (t *Transaction) RecordID() int      { return t.ID }
func (t *Transaction) setRecordID(id int) { t.ID = id }

// formatDate renders t as YYYY-M-D without zero padding.
func formatDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}

// formatTimestamp renders t as "YYYY-M-D H:M:S" without zero padding.
func formatTimestamp(t time.Time) string {
	return fmt.Sprintf("%s %d:%d:%d", formatDate(t), t.Hour(), t.Minute(), t.Second())
}
