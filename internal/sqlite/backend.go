// Package sqlite stores directory listings in a SQLite database so a
// listing taken on one side of a copy can be checked against the other.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// DefaultBatchSize is the number of rows inserted per transaction.
const DefaultBatchSize = 100000

var (
	// ErrClosed is returned by operations on a closed database.
	ErrClosed = errors.New("listing database is closed")

	// ErrDatabaseNotFound is returned by Open when the file does not exist.
	ErrDatabaseNotFound = errors.New("listing database not found")
)

// DB is a listing database holding one row per filesystem entry, keyed by
// the path relative to the listing root.
type DB struct {
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

// Create opens path and creates the data table. It fails if the table
// already exists, so a listing is never merged into an older one.
func Create(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if _, err := db.ExecContext(ctx, createData); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table in %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Open opens an existing listing database.
func Open(ctx context.Context, path string) (*DB, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, path)
	} else if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &DB{db: db, path: path}, nil
}

// Path is the database file.
func (d *DB) Path() string {
	return d.path
}

// Close releases the connection. Close is idempotent.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// Lookup returns every row stored for path. The path column is the
// primary key, so more than one row means the database was not written
// by Create.
func (d *DB) Lookup(ctx context.Context, path string) ([]types.FileInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, ErrClosed
	}

	rows, err := d.db.QueryContext(ctx, selectByPath, path)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", path, err)
	}
	defer rows.Close()

	var infos []types.FileInfo
	for rows.Next() {
		var fi types.FileInfo
		if err := rows.Scan(&fi.Path, &fi.Mode, &fi.UID, &fi.GID, &fi.MTime, &fi.Size, &fi.Digest); err != nil {
			return nil, fmt.Errorf("scan %q: %w", path, err)
		}
		infos = append(infos, fi)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q: %w", path, err)
	}
	return infos, nil
}

// Count returns the number of rows in the data table.
func (d *DB) Count(ctx context.Context) (int64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return 0, ErrClosed
	}

	var n int64
	if err := d.db.QueryRowContext(ctx, countRows).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
