package library

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"
)

// File names inside the data directory.
const (
	BooksFile        = "books.txt"
	StudentsFile     = "students.txt"
	TransactionsFile = "transactions.txt"
	HistoryFile      = "operation_history.txt"

	lockFile = ".library.lock"
)

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 100 * time.Millisecond
	maxLineSize    = 1 << 20
)

// Gateway reads and writes the flat files of one data directory. A lock file
// keeps a second process from interleaving with a load or save.
type Gateway struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// NewGateway prepares dir (creating it if needed) for store files.
func NewGateway(dir string, logger *slog.Logger) (*Gateway, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &PersistenceError{Op: "create data dir", Path: dir, Err: err}
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Gateway{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, lockFile)),
		logger: logger,
	}, nil
}

// Dir returns the data directory.
func (g *Gateway) Dir() string { return g.dir }

// Path returns the location of name inside the data directory.
func (g *Gateway) Path(name string) string { return filepath.Join(g.dir, name) }

func (g *Gateway) withLock(fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	locked, err := g.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return &PersistenceError{Op: "lock", Path: g.lock.Path(), Err: err}
	}
	if !locked {
		return &PersistenceError{Op: "lock", Path: g.lock.Path(), Err: errors.New("data directory is locked by another process")}
	}
	defer func() { _ = g.lock.Unlock() }()
	return fn()
}

// saveStore writes the next ID followed by one encoded line per record. The
// file is written to a temporary name and renamed over the old one.
func saveStore[R Record](g *Gateway, name string, s *Store[R], c Codec[R]) error {
	var buf bytes.Buffer
	buf.WriteString(strconv.Itoa(s.NextID()))
	buf.WriteByte('\n')
	for _, r := range s.All() {
		buf.WriteString(c.Encode(r))
		buf.WriteByte('\n')
	}

	path := g.Path(name)
	return g.withLock(func() error {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
			return &PersistenceError{Op: "write", Path: tmp, Err: err}
		}
		if err := os.Rename(tmp, path); err != nil {
			_ = os.Remove(tmp)
			return &PersistenceError{Op: "rename", Path: path, Err: err}
		}
		return nil
	})
}

// loadStore replaces the contents of s with what is stored in name. A missing
// or empty file leaves s empty with next ID 1. Lines that fail to decode are
// skipped and returned; an unreadable header aborts the load.
func loadStore[R Record](g *Gateway, name string, s *Store[R], c Codec[R]) ([]*MalformedRecordError, error) {
	s.reset(nil, 1)
	path := g.Path(name)

	var skipped []*MalformedRecordError
	err := g.withLock(func() error {
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if err != nil {
			return &PersistenceError{Op: "open", Path: path, Err: err}
		}
		defer f.Close()

		records, nextID, bad, err := decodeStore(f, path, c)
		if err != nil {
			return err
		}
		s.reset(records, nextID)
		skipped = bad
		return nil
	})
	for _, e := range skipped {
		g.logger.Warn("skipping malformed record", "file", e.Path, "line", e.Line, "reason", e.Reason)
	}
	return skipped, err
}

func decodeStore[R Record](r io.Reader, path string, c Codec[R]) ([]R, int, []*MalformedRecordError, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	nextID := 1
	var (
		records []R
		skipped []*MalformedRecordError
		lineNo  int
	)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if lineNo == 1 {
			header := strings.TrimSpace(line)
			if header == "" {
				// an empty file has no header at all
				continue
			}
			n, err := strconv.Atoi(header)
			if err != nil {
				return nil, 1, nil, &MalformedRecordError{Path: path, Line: 1, Text: line, Reason: "invalid next id"}
			}
			nextID = n
			continue
		}
		if line == "" {
			continue
		}
		rec, err := c.Decode(line)
		if err != nil {
			var me *MalformedRecordError
			if !errors.As(err, &me) {
				me = &MalformedRecordError{Text: line, Reason: err.Error()}
			}
			me.Path, me.Line = path, lineNo
			skipped = append(skipped, me)
			continue
		}
		records = append(records, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, 1, nil, &PersistenceError{Op: "read", Path: path, Err: err}
	}
	return records, nextID, skipped, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
