package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	_ "github.com/mattn/go-sqlite3"
)

// Snapshot is a point-in-time copy of the whole catalog.
type Snapshot struct {
	NextBookID        int           `json:"next_book_id"`
	NextStudentID     int           `json:"next_student_id"`
	NextTransactionID int           `json:"next_transaction_id"`
	Books             []Book        `json:"books"`
	Students          []Student     `json:"students"`
	Transactions      []Transaction `json:"transactions"`
}

// Snapshot copies the current state.
func (c *Catalog) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		NextBookID:        c.books.NextID(),
		NextStudentID:     c.students.NextID(),
		NextTransactionID: c.transactions.NextID(),
		Books:             copyAll(c.books),
		Students:          copyAll(c.students),
		Transactions:      copyAll(c.transactions),
	}
}

// WriteJSON writes the snapshot as indented JSON.
func (c *Catalog) WriteJSON(w io.Writer) error {
	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(c.Snapshot())
}

// ---------------------------------------------------------------------------
// SQLite export
// ---------------------------------------------------------------------------

const exportSchemaVersion = 1

// ExportSQLite writes the snapshot into the SQLite database at path,
// replacing whatever catalog rows it held before.
func (c *Catalog) ExportSQLite(path string) error {
	snap := c.Snapshot()

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	db, err := sqlx.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if err := applyExportSchema(db); err != nil {
		return err
	}

	tx, err := db.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "students", "books"} {
		if _, err := tx.Exec(`DELETE FROM ` + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	if len(snap.Books) > 0 {
		if _, err := tx.NamedExec(`INSERT INTO books(id,title,author,isbn,available)
            VALUES(:id,:title,:author,:isbn,:available)`, snap.Books); err != nil {
			return fmt.Errorf("insert books: %w", err)
		}
	}
	if len(snap.Students) > 0 {
		if _, err := tx.NamedExec(`INSERT INTO students(id,name) VALUES(:id,:name)`, snap.Students); err != nil {
			return fmt.Errorf("insert students: %w", err)
		}
	}
	if len(snap.Transactions) > 0 {
		if _, err := tx.NamedExec(`INSERT INTO transactions(id,book_id,student_id,type,date)
            VALUES(:id,:book_id,:student_id,:type,:date)`, snap.Transactions); err != nil {
			return fmt.Errorf("insert transactions: %w", err)
		}
	}

	counters := map[string]int{
		"next_book_id":        snap.NextBookID,
		"next_student_id":     snap.NextStudentID,
		"next_transaction_id": snap.NextTransactionID,
	}
	for key, v := range counters {
		if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES(?,?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, key, strconv.Itoa(v)); err != nil {
			return fmt.Errorf("store %s: %w", key, err)
		}
	}
	return tx.Commit()
}

func applyExportSchema(db *sqlx.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= exportSchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// No foreign keys: transactions may reference deleted books or students.
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            isbn TEXT NOT NULL,
            available BOOLEAN NOT NULL DEFAULT 1
        );`,
		`CREATE TABLE IF NOT EXISTS students (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS transactions (
            id INTEGER PRIMARY KEY,
            book_id INTEGER NOT NULL,
            student_id INTEGER NOT NULL,
            type TEXT NOT NULL,
            date TEXT NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_book ON transactions(book_id);`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply export schema: %w", err)
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta(key,value) VALUES('schema_version',?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, strconv.Itoa(exportSchemaVersion)); err != nil {
		return fmt.Errorf("apply export schema: %w", err)
	}
	return tx.Commit()
}
