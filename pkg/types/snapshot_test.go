package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_JSONKeepsOrder(t *testing.T) {
	s := Snapshot{
		Meta: SnapshotMeta{StartTime: 1700000000.5, EndTime: 1700000010.25},
		Entries: []Entry{
			{Name: "Zulu", Bucket: "z", Files: 3, Bytes: 300},
			{Name: "Alpha", Bucket: "", Files: 0, Bytes: 0},
		},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"*": {"start_time": 1700000000.5, "end_time": 1700000010.25},
		"Zulu": {"s3_bucket": "z", "s3_files": 3, "s3_bytes": 300},
		"Alpha": {"s3_bucket": "", "s3_files": 0, "s3_bytes": 0}
	}`, string(data))

	var got Snapshot
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s, got)
	assert.Equal(t, "Zulu", got.Entries[0].Name)
}

func TestSnapshot_UnmarshalMetaAnywhere(t *testing.T) {
	in := `{"B": {"s3_bucket": "b", "s3_files": 1, "s3_bytes": 2},
	        "*": {"start_time": 10, "end_time": 11},
	        "A": {"s3_bucket": "a", "s3_files": 5, "s3_bytes": 6}}`

	var s Snapshot
	require.NoError(t, json.Unmarshal([]byte(in), &s))
	require.Len(t, s.Entries, 2)
	assert.Equal(t, "B", s.Entries[0].Name)
	assert.Equal(t, "A", s.Entries[1].Name)
	assert.Equal(t, 10.0, s.Meta.StartTime)

	e, ok := s.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, int64(5), e.Files)

	_, ok = s.Lookup("C")
	assert.False(t, ok)
}

func TestSnapshot_UnmarshalRejectsArray(t *testing.T) {
	var s Snapshot
	assert.Error(t, json.Unmarshal([]byte(`[]`), &s))
}

func TestSnapshot_IsEmpty(t *testing.T) {
	assert.True(t, (&Snapshot{}).IsEmpty())
	assert.False(t, (&Snapshot{Meta: SnapshotMeta{StartTime: 1}}).IsEmpty())
}

func TestSnapshot_Date(t *testing.T) {
	start := time.Date(2024, 3, 9, 5, 30, 0, 0, time.Local)
	s := Snapshot{Meta: SnapshotMeta{StartTime: FloatUnix(start)}}
	assert.Equal(t, "2024-03-09", s.Date())
	assert.WithinDuration(t, start, s.StartedAt(), time.Microsecond)
}

func TestFileInfoDiff(t *testing.T) {
	a := FileInfo{Path: "x", Mode: 0o100644, UID: 1, GID: 1, MTime: 1.5, Size: 10, Digest: "d"}

	assert.Empty(t, a.Diff(a))

	b := a
	b.Size = 11
	b.Digest = "e"
	b.UID = 2
	assert.Equal(t, []string{"uid", "size", "digest"}, a.Diff(b))
}
