package library

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
)

// Catalog owns the book, student and transaction stores and implements the
// circulation rules over them. Every mutation is written through to disk
// before the call returns. A failed write is reported as a *PersistenceError
// but the in-memory change is kept.
type Catalog struct {
	mu sync.Mutex

	books        *Store[*Book]
	students     *Store[*Student]
	transactions *Store[*Transaction]

	gateway     *Gateway
	audit       *AuditLog
	logger      *slog.Logger
	now         func() time.Time
	historyPath string
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Catalog) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock used for transaction dates and audit timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) {
		if now != nil {
			c.now = now
		}
	}
}

// WithHistoryFile overrides the location of the audit log.
func WithHistoryFile(path string) Option {
	return func(c *Catalog) { c.historyPath = path }
}

// Open creates a catalog backed by the files in dir and loads them.
func Open(dir string, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		books:        NewStore[*Book](),
		students:     NewStore[*Student](),
		transactions: NewStore[*Transaction](),
		logger:       discardLogger(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	gw, err := NewGateway(dir, c.logger)
	if err != nil {
		return nil, err
	}
	c.gateway = gw
	if c.historyPath == "" {
		c.historyPath = gw.Path(HistoryFile)
	}
	c.audit = NewAuditLog(c.historyPath, c.now)

	if err := c.LoadAll(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the data directory.
func (c *Catalog) Dir() string { return c.gateway.Dir() }

// LoadAll replaces the in-memory state with the persisted files. Malformed
// record lines are skipped and logged.
func (c *Catalog) LoadAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, errB := loadStore(c.gateway, BooksFile, c.books, BookCodec{})
	_, errS := loadStore(c.gateway, StudentsFile, c.students, StudentCodec{})
	_, errT := loadStore(c.gateway, TransactionsFile, c.transactions, TransactionCodec{})
	if err := errors.Join(errB, errS, errT); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	c.logger.Debug("catalog loaded",
		"books", c.books.Len(), "students", c.students.Len(), "transactions", c.transactions.Len())
	return nil
}

// SaveAll writes all three stores.
func (c *Catalog) SaveAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.saveBooks(), c.saveStudents(), c.saveTransactions())
}

// ------------------ Books ------------------

// AddBook adds an available book and returns its ID.
func (c *Catalog) AddBook(title, author, isbn string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.isbnTaken(isbn, 0) {
		return 0, fmt.Errorf("add book with ISBN %q: %w", isbn, ErrDuplicateISBN)
	}
	id := c.books.Add(&Book{Title: title, Author: author, ISBN: isbn, Available: true})
	err := c.saveBooks()
	c.record("Added book: " + title)
	return id, err
}

// UpdateBook overwrites one field of a book.
func (c *Catalog) UpdateBook(id int, field BookField, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !field.valid() {
		return fmt.Errorf("update book %d: %w: %q", id, ErrUnknownField, field)
	}
	if _, ok := c.books.FindByID(id); !ok {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if field == FieldISBN && c.isbnTaken(value, id) {
		return fmt.Errorf("update book %d to ISBN %q: %w", id, value, ErrDuplicateISBN)
	}

	var old string
	c.books.Update(id, func(b *Book) {
		old = field.value(b)
		field.set(b, value)
	})
	err := c.saveBooks()
	c.record("Updated book ID " + strconv.Itoa(id) + ": " + old + " -> " + value)
	return err
}

// DeleteBook removes a book that is currently on the shelf.
func (c *Catalog) DeleteBook(id int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.books.FindByID(id)
	if !ok {
		return fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	if !b.Available {
		return fmt.Errorf("delete book %d: %w", id, ErrBookCheckedOut)
	}
	title := b.Title
	c.books.Remove(id)
	err := c.saveBooks()
	c.record("Deleted book: " + title + " (ID: " + strconv.Itoa(id) + ")")
	return err
}

// Book returns a copy of the book with id.
func (c *Catalog) Book(id int) (Book, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.books.FindByID(id)
	if !ok {
		return Book{}, fmt.Errorf("book %d: %w", id, ErrNotFound)
	}
	return *b, nil
}

// Books returns all books in insertion order.
func (c *Catalog) Books() []Book {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyAll(c.books)
}

// SearchBooks returns books whose field contains term, ignoring case, in
// insertion order.
func (c *Catalog) SearchBooks(field BookField, term string) ([]Book, error) {
	if !field.valid() {
		return nil, fmt.Errorf("search books: %w: %q", ErrUnknownField, field)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	fold := cases.Fold()
	needle := fold.String(term)
	results := make([]Book, 0)
	for _, b := range c.books.All() {
		if strings.Contains(fold.String(field.value(b)), needle) {
			results = append(results, *b)
		}
	}
	return results, nil
}

// ------------------ Students ------------------

// AddStudent registers a student and returns its ID.
func (c *Catalog) AddStudent(name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.students.Add(&Student{Name: name})
	err := c.saveStudents()
	c.record("Added student: " + name)
	return id, err
}

// Student returns a copy of the student with id.
func (c *Catalog) Student(id int) (Student, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.students.FindByID(id)
	if !ok {
		return Student{}, fmt.Errorf("student %d: %w", id, ErrNotFound)
	}
	return *s, nil
}

// Students returns all students in insertion order.
func (c *Catalog) Students() []Student {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyAll(c.students)
}

// ------------------ Circulation ------------------

// BorrowBook checks an available book out to a student and records a
// borrow transaction.
func (c *Catalog) BorrowBook(studentID, bookID int) (Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.students.FindByID(studentID); !ok {
		return Transaction{}, fmt.Errorf("student %d: %w", studentID, ErrNotFound)
	}
	b, ok := c.books.FindByID(bookID)
	if !ok {
		return Transaction{}, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	if !b.Available {
		return Transaction{}, fmt.Errorf("borrow book %d: %w", bookID, ErrAlreadyBorrowed)
	}

	c.books.Update(bookID, func(b *Book) { b.Available = false })
	tx := c.appendTransaction(bookID, studentID, TxBorrow)
	err := errors.Join(c.saveBooks(), c.saveTransactions())
	c.record("Student ID " + strconv.Itoa(studentID) + " borrowed book: " + b.Title + " (ID: " + strconv.Itoa(bookID) + ")")
	return tx, err
}

// ReturnBook puts a checked-out book back on the shelf. The borrower is the
// student of the most recent borrow transaction for the book.
func (c *Catalog) ReturnBook(bookID int) (Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.books.FindByID(bookID)
	if !ok {
		return Transaction{}, fmt.Errorf("book %d: %w", bookID, ErrNotFound)
	}
	if b.Available {
		return Transaction{}, fmt.Errorf("return book %d: %w", bookID, ErrNotBorrowed)
	}
	studentID, ok := c.lastBorrower(bookID)
	if !ok {
		return Transaction{}, fmt.Errorf("return book %d: %w", bookID, ErrMissingBorrowRecord)
	}

	c.books.Update(bookID, func(b *Book) { b.Available = true })
	tx := c.appendTransaction(bookID, studentID, TxReturn)
	err := errors.Join(c.saveBooks(), c.saveTransactions())
	c.record("Student ID " + strconv.Itoa(studentID) + " returned book: " + b.Title + " (ID: " + strconv.Itoa(bookID) + ")")
	return tx, err
}

// Transactions returns every transaction in chronological order with the
// current title of its book, or UnknownTitle if the book is gone.
func (c *Catalog) Transactions() []TransactionView {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := c.transactions.All()
	views := make([]TransactionView, 0, len(all))
	for _, t := range all {
		title := UnknownTitle
		if b, ok := c.books.FindByID(t.BookID); ok {
			title = b.Title
		}
		views = append(views, TransactionView{Transaction: *t, BookTitle: title})
	}
	return views
}

// History returns the audit lines recorded since the catalog was opened.
func (c *Catalog) History() []string {
	return c.audit.Entries()
}

// ------------------ internals ------------------

func (c *Catalog) isbnTaken(isbn string, exceptID int) bool {
	for _, b := range c.books.All() {
		if b.ISBN == isbn && b.ID != exceptID {
			return true
		}
	}
	return false
}

// lastBorrower scans transactions newest first. It depends on the store
// keeping insertion order.
func (c *Catalog) lastBorrower(bookID int) (int, bool) {
	all := c.transactions.All()
	for i := len(all) - 1; i >= 0; i-- {
		if t := all[i]; t.BookID == bookID && t.Type == TxBorrow {
			return t.StudentID, true
		}
	}
	return 0, false
}

func (c *Catalog) appendTransaction(bookID, studentID int, typ TxType) Transaction {
	tx := &Transaction{BookID: bookID, StudentID: studentID, Type: typ, Date: formatDate(c.now())}
	c.transactions.Add(tx)
	return *tx
}

func (c *Catalog) saveBooks() error {
	return c.logSaveError(BooksFile, saveStore(c.gateway, BooksFile, c.books, BookCodec{}))
}

func (c *Catalog) saveStudents() error {
	return c.logSaveError(StudentsFile, saveStore(c.gateway, StudentsFile, c.students, StudentCodec{}))
}

func (c *Catalog) saveTransactions() error {
	return c.logSaveError(TransactionsFile, saveStore(c.gateway, TransactionsFile, c.transactions, TransactionCodec{}))
}

func (c *Catalog) logSaveError(file string, err error) error {
	if err != nil {
		c.logger.Error("write-through failed, in-memory state kept", "file", file, "err", err)
	}
	return err
}

func (c *Catalog) record(description string) {
	c.logger.Debug("operation", "description", description)
	if err := c.audit.Record(description); err != nil {
		c.logger.Warn("audit log write failed", "err", err)
	}
}

func copyAll[T any, R interface {
	*T
	Record
}](s *Store[R]) []T {
	all := s.All()
	out := make([]T, 0, len(all))
	for _, r := range all {
		out = append(out, *r)
	}
	return out
}
