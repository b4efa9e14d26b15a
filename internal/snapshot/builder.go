package snapshot

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mesh-intelligence/storagereport/internal/logging"
	"github.com/mesh-intelligence/storagereport/internal/s3"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type (
	// BucketScanner measures one bucket. *s3.Scanner implements it.
	BucketScanner interface {
		ScanBucket(ctx context.Context, bucket string) (s3.Usage, error)
	}

	// Builder takes a snapshot of every collaborator's bucket.
	Builder struct {
		scanner     BucketScanner
		logger      *zap.Logger
		parallelism int
		now         func() time.Time
	}

	// BuilderOption configures a Builder.
	BuilderOption func(b *Builder)
)

const defaultParallelism = 4

// NewBuilder returns a Builder that scans with scanner.
func NewBuilder(scanner BucketScanner, logger *zap.Logger, opts ...BuilderOption) *Builder {
	b := &Builder{
		scanner:     scanner,
		logger:      logging.WithPackage(logger),
		parallelism: defaultParallelism,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithParallelism sets how many buckets are scanned at once.
func WithParallelism(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.parallelism = n
		}
	}
}

// WithClock replaces time.Now for the snapshot start and end times.
func WithClock(now func() time.Time) BuilderOption {
	return func(b *Builder) {
		b.now = now
	}
}

// Build scans the buckets of collabs and returns a snapshot with one entry
// per collaborator, in the given order. Collaborators without a bucket get
// zero counts. The first scan failure cancels the remaining scans.
func (b *Builder) Build(ctx context.Context, collabs []types.Collaborator, runID string) (types.Snapshot, error) {
	snap := types.Snapshot{
		Meta: types.SnapshotMeta{
			StartTime: types.FloatUnix(b.now()),
			RunID:     runID,
		},
		Entries: make([]types.Entry, len(collabs)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.parallelism)

	for i, c := range collabs {
		snap.Entries[i] = types.Entry{Name: c.Name, Bucket: c.Bucket}
		if c.Bucket == "" {
			continue
		}

		i, c := i, c
		g.Go(func() error {
			usage, err := b.scanner.ScanBucket(gctx, c.Bucket)
			if err != nil {
				return fmt.Errorf("scan %s: %w", c.Name, err)
			}
			snap.Entries[i].Files = usage.Files
			snap.Entries[i].Bytes = usage.Bytes
			b.logger.Info(
				"collaborator scanned",
				zap.String("collaborator", c.Name),
				zap.String("bucket", c.Bucket),
				zap.Int64("files", usage.Files),
				zap.Int64("bytes", usage.Bytes),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return types.Snapshot{}, err
	}

	snap.Meta.EndTime = types.FloatUnix(b.now())
	return snap, nil
}
