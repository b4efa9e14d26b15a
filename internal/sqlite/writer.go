package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// Writer inserts rows in batches, committing every batchSize rows.
type Writer struct {
	db        *DB
	tx        *sql.Tx
	stmt      *sql.Stmt
	batchSize int
	rows      int
	onCommit  func(rows int)
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithBatchSize sets the rows per transaction. Values below one are ignored.
func WithBatchSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

// WithCommitHook is called after every commit with the total rows written.
func WithCommitHook(fn func(rows int)) WriterOption {
	return func(w *Writer) { w.onCommit = fn }
}

// NewWriter starts the first transaction.
func (d *DB) NewWriter(ctx context.Context, opts ...WriterOption) (*Writer, error) {
	w := &Writer{db: d, batchSize: DefaultBatchSize}
	for _, opt := range opts {
		opt(w)
	}
	if err := w.begin(ctx); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) begin(ctx context.Context) error {
	w.db.mu.RLock()
	defer w.db.mu.RUnlock()

	if w.db.closed {
		return ErrClosed
	}

	tx, err := w.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, insertData)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	w.tx = tx
	w.stmt = stmt
	return nil
}

func (w *Writer) commit() error {
	w.stmt.Close()
	if err := w.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	w.tx = nil
	w.stmt = nil
	if w.onCommit != nil {
		w.onCommit(w.rows)
	}
	return nil
}

// Insert adds one row. A duplicate path violates the primary key and is
// returned as an error.
func (w *Writer) Insert(ctx context.Context, fi types.FileInfo) error {
	if w.tx == nil {
		return ErrClosed
	}
	if _, err := w.stmt.ExecContext(ctx, fi.Path, fi.Mode, fi.UID, fi.GID, fi.MTime, fi.Size, fi.Digest); err != nil {
		return fmt.Errorf("insert %q: %w", fi.Path, err)
	}
	w.rows++

	if w.rows%w.batchSize == 0 {
		if err := w.commit(); err != nil {
			return err
		}
		return w.begin(ctx)
	}
	return nil
}

// Rows is the number of rows inserted so far.
func (w *Writer) Rows() int {
	return w.rows
}

// Close commits the pending batch.
func (w *Writer) Close() error {
	if w.tx == nil {
		return nil
	}
	return w.commit()
}

// Abort rolls back the pending batch. Committed batches stay.
func (w *Writer) Abort() error {
	if w.tx == nil {
		return nil
	}
	w.stmt.Close()
	err := w.tx.Rollback()
	w.tx = nil
	w.stmt = nil
	return err
}
