// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/whats-next/pkg/types"
)

const sqliteFile = "index.db"

// SQLiteStore persists each index as its own database under dir/<name>/,
// so destroying an index is removing its directory.
type SQLiteStore struct {
	dir string
	mu  sync.Mutex
	dbs map[string]*sql.DB
}

// NewSQLiteStore returns a store rooted at dir, creating it if needed.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: sqlite directory not set", ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	return &SQLiteStore{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

func (s *SQLiteStore) path(name string) string {
	return filepath.Join(s.dir, name, sqliteFile)
}

// open returns the cached handle for name. With create unset a missing
// database is ErrIndexNotFound rather than an empty new file.
func (s *SQLiteStore) open(name string, create bool) (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if db, ok := s.dbs[name]; ok {
		return db, nil
	}

	p := s.path(name)
	if !create {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, name)
		}
	} else if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := sql.Open("sqlite3", p+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.dbs[name] = db
	return db, nil
}

func (s *SQLiteStore) Create(ctx context.Context, name string, dim int) error {
	db, err := s.open(name, true)
	if err != nil {
		return err
	}
	statements := []string{
		`CREATE TABLE meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE TABLE entries (
			seq INTEGER PRIMARY KEY,
			id TEXT NOT NULL UNIQUE,
			doc_id TEXT NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL,
			year INTEGER,
			url TEXT NOT NULL,
			source_type TEXT NOT NULL,
			vector BLOB NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('dim', ?)`, strconv.Itoa(dim)); err != nil {
		return fmt.Errorf("recording dimension: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Destroy(_ context.Context, name string) error {
	s.mu.Lock()
	db, ok := s.dbs[name]
	delete(s.dbs, name)
	s.mu.Unlock()
	if ok {
		db.Close()
	}
	if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("removing index %s: %w", name, err)
	}
	return nil
}

// Insert writes all entries in one transaction.
func (s *SQLiteStore) Insert(ctx context.Context, name string, entries []Entry) error {
	db, err := s.open(name, false)
	if err != nil {
		return err
	}

	var dim int
	var raw string
	if err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'dim'`).Scan(&raw); err != nil {
		return fmt.Errorf("reading dimension: %w", err)
	}
	if dim, err = strconv.Atoi(raw); err != nil {
		return fmt.Errorf("parsing dimension %q: %w", raw, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entries
		(seq, id, doc_id, title, abstract, year, url, source_type, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("entry %s has dimension %d, index %s expects %d", e.ID, len(e.Vector), name, dim)
		}
		d := e.Document
		if _, err := stmt.ExecContext(ctx, e.Seq, e.ID, d.ID, d.Title, d.Abstract, d.Year, d.URL,
			string(d.SourceType), encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}
	return tx.Commit()
}

// Search loads every vector and ranks by brute force. Per-topic indexes
// hold at most a few thousand documents.
func (s *SQLiteStore) Search(ctx context.Context, name string, vector []float32, k int) ([]Hit, error) {
	db, err := s.open(name, false)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT seq, id, doc_id, title, abstract, year, url, source_type, vector
		FROM entries ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e    Entry
			src  string
			blob []byte
		)
		if err := rows.Scan(&e.Seq, &e.ID, &e.Document.ID, &e.Document.Title, &e.Document.Abstract,
			&e.Document.Year, &e.Document.URL, &src, &blob); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Document.SourceType = types.SourceType(src)
		e.Vector = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entries: %w", err)
	}
	return rank(entries, vector, k), nil
}

func (s *SQLiteStore) Count(ctx context.Context, name string) (int, error) {
	db, err := s.open(name, false)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Names lists the persisted indexes.
func (s *SQLiteStore) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading index directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, e.Name(), sqliteFile)); err == nil {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for name, db := range s.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", name, err))
		}
		delete(s.dbs, name)
	}
	return errors.Join(errs...)
}
