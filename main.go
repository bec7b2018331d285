package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"library-catalog/library"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// menu is the interactive front end over a Catalog.
type menu struct {
	sc        *bufio.Scanner
	out       io.Writer
	cat       *library.Catalog
	adminHash string

	readPassword func(prompt string) (string, error)
}

func newMenu(cat *library.Catalog, in io.Reader, out io.Writer, adminHash string) *menu {
	return &menu{
		sc:        bufio.NewScanner(in),
		out:       out,
		cat:       cat,
		adminHash: adminHash,
	}
}

func (m *menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}

// run reads commands until "exit" or end of input, then saves everything.
func (m *menu) run() error {
	m.printf("Welcome to the Library Catalog!\n")
	m.printf("Available commands:\n")
	m.printf("  Books: add book, list books, search book, update book, delete book\n")
	m.printf("  Students: add student, list students\n")
	m.printf("  Circulation: borrow, return, transactions\n")
	m.printf("  System: history, exit\n")

	for {
		m.printf("\n> ")
		if !m.sc.Scan() {
			break
		}
		cmd := strings.TrimSpace(m.sc.Text())

		switch cmd {
		case "add book":
			m.handleAddBook()
		case "list books":
			m.handleListBooks()
		case "search book":
			m.handleSearchBooks()
		case "update book":
			m.handleUpdateBook()
		case "delete book":
			m.handleDeleteBook()
		case "add student":
			m.handleAddStudent()
		case "list students":
			m.handleListStudents()
		case "borrow":
			m.handleBorrow()
		case "return":
			m.handleReturn()
		case "transactions":
			m.handleListTransactions()
		case "history":
			m.handleHistory()
		case "exit":
			return m.saveAndQuit()
		case "":
			continue
		default:
			m.printf("Unknown command. Type one of the available commands listed above.\n")
		}
	}
	return m.saveAndQuit()
}

func (m *menu) saveAndQuit() error {
	if err := m.cat.SaveAll(); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	m.printf("Goodbye!\n")
	return nil
}

// prompt reads one trimmed line. ok is false at end of input.
func (m *menu) prompt(label string) (string, bool) {
	m.printf("%s", label)
	if !m.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.sc.Text()), true
}

// promptText reads a line that will be stored in a record.
func (m *menu) promptText(label string) (string, bool) {
	s, ok := m.prompt(label)
	if !ok {
		return "", false
	}
	if err := library.ValidateField(s); err != nil {
		m.printf("Error: %q may not contain %q\n", s, library.Delimiter)
		return "", false
	}
	return s, true
}

func (m *menu) promptID(label string) (int, bool) {
	s, ok := m.prompt(label)
	if !ok {
		return 0, false
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		m.printf("Invalid ID: %s\n", s)
		return 0, false
	}
	return id, true
}

// authorize asks for the admin password when one is configured.
func (m *menu) authorize() bool {
	if m.adminHash == "" {
		return true
	}
	if m.readPassword == nil {
		m.printf("Authentication failed: no password input available\n")
		return false
	}
	password, err := m.readPassword("Admin password: ")
	if err != nil {
		m.printf("Error reading password: %v\n", err)
		return false
	}
	if err := library.CheckPassword(m.adminHash, password); err != nil {
		m.printf("Authentication failed: %v\n", err)
		return false
	}
	return true
}

// reportSaved prints a write-through failure; the change itself stays in memory.
func (m *menu) reportSaved(err error) {
	var perr *library.PersistenceError
	if errors.As(err, &perr) {
		m.printf("Warning: change kept in memory but not saved: %v\n", err)
	}
}

func (m *menu) handleAddBook() {
	title, ok := m.promptText("Title: ")
	if !ok {
		return
	}
	author, ok := m.promptText("Author: ")
	if !ok {
		return
	}
	isbn, ok := m.promptText("ISBN: ")
	if !ok {
		return
	}

	id, err := m.cat.AddBook(title, author, isbn)
	if errors.Is(err, library.ErrDuplicateISBN) {
		m.printf("A book with this ISBN already exists!\n")
		return
	}
	m.reportSaved(err)
	m.printf("Added book ID %d.\n", id)
}

func (m *menu) printBooks(books []library.Book) {
	m.printf("%-5s %-30s %-20s %-15s %s\n", "ID", "Title", "Author", "ISBN", "Available")
	m.printf("%s\n", strings.Repeat("-", 80))
	for _, b := range books {
		avail := "No"
		if b.Available {
			avail = "Yes"
		}
		m.printf("%-5d %-30s %-20s %-15s %s\n", b.ID, truncateString(b.Title, 28), truncateString(b.Author, 18), b.ISBN, avail)
	}
}

func (m *menu) handleListBooks() {
	books := m.cat.Books()
	if len(books) == 0 {
		m.printf("No books in the library.\n")
		return
	}
	m.printBooks(books)
}

func (m *menu) handleSearchBooks() {
	m.printf("Search by: 1. Title  2. Author  3. ISBN\n")
	choice, ok := m.prompt("Enter your choice: ")
	if !ok {
		return
	}
	field, err := library.ParseBookField(choice)
	if err != nil {
		m.printf("Invalid choice: %s\n", choice)
		return
	}
	term, ok := m.prompt("Enter search term: ")
	if !ok {
		return
	}

	results, err := m.cat.SearchBooks(field, term)
	if err != nil {
		m.printf("Error: %v\n", err)
		return
	}
	if len(results) == 0 {
		m.printf("No matching books found.\n")
		return
	}
	m.printBooks(results)
}

func (m *menu) handleUpdateBook() {
	id, ok := m.promptID("Book ID: ")
	if !ok {
		return
	}
	if _, err := m.cat.Book(id); err != nil {
		m.printf("Book not found!\n")
		return
	}
	m.printf("Update: 1. Title  2. Author  3. ISBN\n")
	choice, ok := m.prompt("Enter your choice: ")
	if !ok {
		return
	}
	field, err := library.ParseBookField(choice)
	if err != nil {
		m.printf("Invalid choice: %s\n", choice)
		return
	}
	value, ok := m.promptText("New value: ")
	if !ok {
		return
	}
	if !m.authorize() {
		return
	}

	err = m.cat.UpdateBook(id, field, value)
	switch {
	case errors.Is(err, library.ErrDuplicateISBN):
		m.printf("A book with this ISBN already exists!\n")
	case errors.Is(err, library.ErrNotFound):
		m.printf("Book not found!\n")
	default:
		m.reportSaved(err)
		m.printf("Book updated successfully!\n")
	}
}

func (m *menu) handleDeleteBook() {
	id, ok := m.promptID("Book ID: ")
	if !ok {
		return
	}
	if !m.authorize() {
		return
	}

	err := m.cat.DeleteBook(id)
	switch {
	case errors.Is(err, library.ErrNotFound):
		m.printf("Book not found!\n")
	case errors.Is(err, library.ErrBookCheckedOut):
		m.printf("Cannot delete book: it is currently borrowed.\n")
	default:
		m.reportSaved(err)
		m.printf("Book deleted successfully!\n")
	}
}

func (m *menu) handleAddStudent() {
	name, ok := m.promptText("Name: ")
	if !ok {
		return
	}
	id, err := m.cat.AddStudent(name)
	m.reportSaved(err)
	m.printf("Added student '%s' with ID %d\n", name, id)
}

func (m *menu) handleListStudents() {
	students := m.cat.Students()
	if len(students) == 0 {
		m.printf("No students registered.\n")
		return
	}
	m.printf("%-5s %s\n", "ID", "Name")
	m.printf("%s\n", strings.Repeat("-", 40))
	for _, s := range students {
		m.printf("%-5d %s\n", s.ID, s.Name)
	}
}

func (m *menu) handleBorrow() {
	studentID, ok := m.promptID("Student ID: ")
	if !ok {
		return
	}
	bookID, ok := m.promptID("Book ID: ")
	if !ok {
		return
	}

	_, err := m.cat.BorrowBook(studentID, bookID)
	switch {
	case errors.Is(err, library.ErrNotFound):
		m.printf("Error: %v\n", err)
	case errors.Is(err, library.ErrAlreadyBorrowed):
		m.printf("This book is already borrowed.\n")
	default:
		m.reportSaved(err)
		m.printf("Book borrowed successfully!\n")
	}
}

func (m *menu) handleReturn() {
	bookID, ok := m.promptID("Book ID: ")
	if !ok {
		return
	}

	tx, err := m.cat.ReturnBook(bookID)
	switch {
	case errors.Is(err, library.ErrNotFound):
		m.printf("Book not found!\n")
	case errors.Is(err, library.ErrNotBorrowed):
		m.printf("This book is not borrowed.\n")
	case errors.Is(err, library.ErrMissingBorrowRecord):
		m.printf("Error: could not find the borrow record for this book.\n")
	default:
		m.reportSaved(err)
		m.printf("Book returned by student ID %d.\n", tx.StudentID)
	}
}

func (m *menu) handleListTransactions() {
	views := m.cat.Transactions()
	if len(views) == 0 {
		m.printf("No transactions recorded.\n")
		return
	}
	m.printf("%-5s %-10s %-12s %-12s %-10s %s\n", "ID", "Type", "Date", "Student ID", "Book ID", "Book Title")
	m.printf("%s\n", strings.Repeat("-", 80))
	for _, v := range views {
		m.printf("%-5d %-10s %-12s %-12d %-10d %s\n", v.ID, v.Type, v.Date, v.StudentID, v.BookID, v.BookTitle)
	}
}

func (m *menu) handleHistory() {
	entries := m.cat.History()
	if len(entries) == 0 {
		m.printf("No operations recorded in this session.\n")
		return
	}
	for _, e := range entries {
		m.printf("%s\n", e)
	}
}

func truncateString(s string, maxLength int) string {
	if len(s) <= maxLength {
		return s
	}
	return s[:maxLength-3] + "..."
}
