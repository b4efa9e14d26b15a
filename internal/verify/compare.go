package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/sqlite"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// Convert loads a listing into a new database at dbPath. Paths are stored
// relative to the listing root. It returns the number of rows written.
func (v *Verifier) Convert(ctx context.Context, listing io.Reader, dbPath string) (int, error) {
	lr, err := NewReader(listing)
	if err != nil {
		return 0, err
	}

	db, err := sqlite.Create(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	w, err := db.NewWriter(ctx,
		sqlite.WithBatchSize(v.reportRows),
		sqlite.WithCommitHook(func(rows int) {
			v.logger.Info("Rows seen: " + humanize.Comma(int64(rows)))
		}))
	if err != nil {
		return 0, err
	}

	for {
		if err := ctx.Err(); err != nil {
			w.Abort()
			return w.Rows(), err
		}
		_, fi, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			w.Abort()
			return w.Rows(), err
		}
		if err := w.Insert(ctx, fi); err != nil {
			w.Abort()
			return w.Rows(), err
		}
	}

	if err := w.Close(); err != nil {
		return w.Rows(), err
	}
	return w.Rows(), db.Close()
}

// CompareSummary counts the outcome of a comparison. Ignored counts
// directories whose only difference is their size.
type CompareSummary struct {
	OK       int
	Missing  int
	Mismatch int
	Ignored  int
}

// Rows is the number of listing entries compared.
func (s CompareSummary) Rows() int {
	return s.OK + s.Missing + s.Mismatch + s.Ignored
}

// Compare checks every entry of a listing against the database at dbPath
// and writes one line per entry to w: MISSING and OK carry the relative
// path, MISMATCH names the differing fields. A directory that differs
// only in size produces no line, since directory sizes depend on the
// filesystem.
func (v *Verifier) Compare(ctx context.Context, listing io.Reader, dbPath string, w io.Writer) (CompareSummary, error) {
	var sum CompareSummary

	lr, err := NewReader(listing)
	if err != nil {
		return sum, err
	}

	db, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return sum, err
	}
	defer db.Close()

	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		tag, fi, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return sum, err
		}

		rows, err := db.Lookup(ctx, fi.Path)
		if err != nil {
			return sum, err
		}

		switch {
		case len(rows) == 0:
			sum.Missing++
			err = WriteLine(w, types.TagMissing, fi.Path)
		case len(rows) > 1:
			return sum, fmt.Errorf("%w: %q", types.ErrPrimaryKey, fi.Path)
		default:
			diff := fi.Diff(rows[0])
			switch {
			case len(diff) == 0:
				sum.OK++
				err = WriteLine(w, types.TagOK, fi.Path)
			case tag == types.TagDir && slices.Equal(diff, []string{"size"}):
				sum.Ignored++
				v.logger.Debug("directory size differs", zap.String("path", fi.Path))
			default:
				sum.Mismatch++
				err = WriteLine(w, types.TagMismatch, types.Mismatch{Path: fi.Path, Kind: tag, Diff: diff})
			}
		}
		if err != nil {
			return sum, fmt.Errorf("write result: %w", err)
		}

		if sum.Rows()%v.reportRows == 0 {
			v.logger.Info("Rows seen: " + humanize.Comma(int64(sum.Rows())))
		}
	}

	v.logger.Info("compare finished",
		zap.Int("ok", sum.OK),
		zap.Int("missing", sum.Missing),
		zap.Int("mismatch", sum.Mismatch),
		zap.Int("ignored", sum.Ignored))
	return sum, nil
}
