package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempGateway(t *testing.T) *Gateway {
	t.Helper()
	g, err := NewGateway(t.TempDir(), nil)
	require.NoError(t, err)
	return g
}

func writeDataFile(t *testing.T, g *Gateway, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(g.Path(name), []byte(content), 0o644))
}

func TestSaveStoreFormat(t *testing.T) {
	g := tempGateway(t)
	s := NewStore[*Book]()
	s.Add(&Book{Title: "Dune", Author: "Herbert", ISBN: "111", Available: true})
	s.Add(&Book{Title: "Emma", Author: "Austen", ISBN: "222"})
	s.Remove(1)

	require.NoError(t, saveStore(g, BooksFile, s, BookCodec{}))

	data, err := os.ReadFile(g.Path(BooksFile))
	require.NoError(t, err)
	assert.Equal(t, "3\n2|Emma|Austen|222|0\n", string(data))

	_, err = os.Stat(g.Path(BooksFile) + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist), "temporary file must be renamed away")
}

func TestStoreRoundTrip(t *testing.T) {
	g := tempGateway(t)

	books := NewStore[*Book]()
	books.Add(&Book{Title: "Dune", Author: "Herbert", ISBN: "111", Available: true})
	books.Add(&Book{Title: "Emma", Author: "Austen", ISBN: "222"})
	books.Add(&Book{Title: "Ulysses", Author: "Joyce", ISBN: "333", Available: true})
	books.Update(3, func(b *Book) { b.Title = "Ulysses (annotated)" })
	books.Remove(2)
	require.NoError(t, saveStore(g, BooksFile, books, BookCodec{}))

	txs := NewStore[*Transaction]()
	txs.Add(&Transaction{BookID: 1, StudentID: 1, Type: TxBorrow, Date: "2024-3-9"})
	txs.Add(&Transaction{BookID: 1, StudentID: 1, Type: TxReturn, Date: "2024-3-10"})
	require.NoError(t, saveStore(g, TransactionsFile, txs, TransactionCodec{}))

	loadedBooks := NewStore[*Book]()
	loadedBooks.Add(&Book{Title: "stale"})
	skipped, err := loadStore(g, BooksFile, loadedBooks, BookCodec{})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.Equal(t, books.All(), loadedBooks.All())
	assert.Equal(t, books.NextID(), loadedBooks.NextID())

	loadedTxs := NewStore[*Transaction]()
	_, err = loadStore(g, TransactionsFile, loadedTxs, TransactionCodec{})
	require.NoError(t, err)
	assert.Equal(t, txs.All(), loadedTxs.All())
	assert.Equal(t, 3, loadedTxs.NextID())
}

func TestLoadMissingOrEmptyFile(t *testing.T) {
	g := tempGateway(t)

	s := NewStore[*Book]()
	s.Add(&Book{Title: "in memory"})
	_, err := loadStore(g, BooksFile, s, BookCodec{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.NextID())

	writeDataFile(t, g, BooksFile, "")
	_, err = loadStore(g, BooksFile, s, BookCodec{})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.NextID())
}

func TestLoadSkipsMalformedLines(t *testing.T) {
	g := tempGateway(t)
	writeDataFile(t, g, BooksFile, "5\n1|Dune|Herbert|111|1\nbroken line\n\n3|Emma|Austen\r\nx|T|A|I|1\n4|Emma|Austen|222|0\r\n")

	s := NewStore[*Book]()
	skipped, err := loadStore(g, BooksFile, s, BookCodec{})
	require.NoError(t, err)

	require.Len(t, skipped, 3)
	assert.Equal(t, 3, skipped[0].Line)
	assert.Equal(t, 5, skipped[1].Line)
	assert.Equal(t, 6, skipped[2].Line)
	assert.Equal(t, g.Path(BooksFile), skipped[0].Path)

	require.Equal(t, 2, s.Len())
	assert.Equal(t, 5, s.NextID())
	b, ok := s.FindByID(4)
	require.True(t, ok)
	assert.Equal(t, "222", b.ISBN)
}

func TestLoadRejectsBadHeader(t *testing.T) {
	g := tempGateway(t)
	writeDataFile(t, g, StudentsFile, "next\n1|Ann\n")

	s := NewStore[*Student]()
	s.Add(&Student{Name: "in memory"})
	_, err := loadStore(g, StudentsFile, s, StudentCodec{})

	var me *MalformedRecordError
	require.True(t, errors.As(err, &me))
	assert.Equal(t, 1, me.Line)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, s.NextID())
}

func TestSaveFailureIsPersistenceError(t *testing.T) {
	g := tempGateway(t)
	// a directory in place of the file makes the rename fail
	require.NoError(t, os.Mkdir(filepath.Join(g.Dir(), BooksFile), 0o755))

	s := NewStore[*Book]()
	s.Add(&Book{Title: "Dune"})
	err := saveStore(g, BooksFile, s, BookCodec{})

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "rename", perr.Op)
	assert.Equal(t, 1, s.Len(), "in-memory state is kept")
}
