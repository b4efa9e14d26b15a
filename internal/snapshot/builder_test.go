package snapshot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/internal/s3"
	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type fakeScanner struct {
	mu      sync.Mutex
	usage   map[string]s3.Usage
	fail    map[string]error
	scanned []string
}

func (f *fakeScanner) ScanBucket(ctx context.Context, bucket string) (s3.Usage, error) {
	f.mu.Lock()
	f.scanned = append(f.scanned, bucket)
	f.mu.Unlock()
	if err := f.fail[bucket]; err != nil {
		return s3.Usage{}, err
	}
	return f.usage[bucket], nil
}

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func TestBuilder_Build(t *testing.T) {
	start := time.Date(2024, 5, 10, 5, 30, 0, 0, time.UTC)
	end := start.Add(42 * time.Second)
	scanner := &fakeScanner{usage: map[string]s3.Usage{
		"bucket-z": {Files: 10, Bytes: 1000},
		"bucket-a": {Files: 1, Bytes: 5},
	}}
	builder := NewBuilder(scanner, zap.NewNop(), WithParallelism(2), WithClock(fixedClock(start, end)))

	collabs := []types.Collaborator{
		{Name: "Zulu", Bucket: "bucket-z"},
		{Name: "NoBucket"},
		{Name: "Alpha", Bucket: "bucket-a"},
	}
	snap, err := builder.Build(context.Background(), collabs, "run-1")
	require.NoError(t, err)

	assert.Equal(t, []types.Entry{
		{Name: "Zulu", Bucket: "bucket-z", Files: 10, Bytes: 1000},
		{Name: "NoBucket"},
		{Name: "Alpha", Bucket: "bucket-a", Files: 1, Bytes: 5},
	}, snap.Entries)
	assert.Equal(t, types.FloatUnix(start), snap.Meta.StartTime)
	assert.Equal(t, types.FloatUnix(end), snap.Meta.EndTime)
	assert.Equal(t, "run-1", snap.Meta.RunID)
	assert.ElementsMatch(t, []string{"bucket-z", "bucket-a"}, scanner.scanned)
}

func TestBuilder_BuildFails(t *testing.T) {
	boom := errors.New("boom")
	scanner := &fakeScanner{fail: map[string]error{"bad": boom}}
	builder := NewBuilder(scanner, zap.NewNop(), WithParallelism(1))

	_, err := builder.Build(context.Background(), []types.Collaborator{{Name: "Bad", Bucket: "bad"}}, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "scan Bad")
}
