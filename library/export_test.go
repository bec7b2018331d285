package library

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func populatedCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := tempCatalog(t)
	dune, _ := c.AddBook("Dune", "Herbert", "111")
	_, _ = c.AddBook("Emma", "Austen", "222")
	ann, _ := c.AddStudent("Ann")
	_, err := c.BorrowBook(ann, dune)
	require.NoError(t, err)
	return c
}

func TestWriteJSON(t *testing.T) {
	c := populatedCatalog(t)

	var buf bytes.Buffer
	require.NoError(t, c.WriteJSON(&buf))

	var snap Snapshot
	require.NoError(t, jsoniter.Unmarshal(buf.Bytes(), &snap))
	assert.Equal(t, c.Snapshot(), snap)
	assert.Equal(t, 3, snap.NextBookID)
}

func TestExportSQLite(t *testing.T) {
	c := populatedCatalog(t)
	path := filepath.Join(t.TempDir(), "export", "catalog.db")

	require.NoError(t, c.ExportSQLite(path))
	// exporting twice replaces rows instead of duplicating them
	_, err := c.AddStudent("Bo")
	require.NoError(t, err)
	require.NoError(t, c.ExportSQLite(path))

	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var books []Book
	require.NoError(t, db.Select(&books, `SELECT id,title,author,isbn,available FROM books ORDER BY id`))
	assert.Equal(t, c.Books(), books)

	var students []Student
	require.NoError(t, db.Select(&students, `SELECT id,name FROM students ORDER BY id`))
	assert.Equal(t, c.Students(), students)

	var txs []Transaction
	require.NoError(t, db.Select(&txs, `SELECT id,book_id,student_id,type,date FROM transactions ORDER BY id`))
	require.Len(t, txs, 1)
	assert.Equal(t, TxBorrow, txs[0].Type)

	var next string
	require.NoError(t, db.Get(&next, `SELECT value FROM meta WHERE key='next_student_id'`))
	assert.Equal(t, "3", next)
}

func TestExportSQLiteEmptyCatalog(t *testing.T) {
	c := tempCatalog(t)
	path := filepath.Join(t.TempDir(), "empty.db")
	require.NoError(t, c.ExportSQLite(path))

	db, err := sqlx.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var n int
	require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM books`))
	assert.Equal(t, 0, n)
}
