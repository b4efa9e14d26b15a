package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// MetaKey is the snapshot key that holds run metadata instead of a
// collaborator entry.
const MetaKey = "*"

// DateLayout names snapshot files and report subjects.
const DateLayout = "2006-01-02"

// ErrSnapshotNotFound is returned when no snapshot exists for a date.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotMeta records when a snapshot was taken. Times are unix seconds.
type SnapshotMeta struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	RunID     string  `json:"run_id,omitempty"`
}

// Entry is one collaborator's usage of the S3 buffer.
type Entry struct {
	Name   string `json:"-"`
	Bucket string `json:"s3_bucket"`
	Files  int64  `json:"s3_files"`
	Bytes  int64  `json:"s3_bytes"`
}

// Snapshot is the storage usage of every collaborator at one point in
// time. Entries keep collaborator order; the JSON form is a single object
// keyed by collaborator name with run metadata under MetaKey.
type Snapshot struct {
	Meta    SnapshotMeta
	Entries []Entry
}

// IsEmpty reports whether the snapshot carries no data at all, which is
// what Previous returns when no earlier snapshot exists.
func (s *Snapshot) IsEmpty() bool {
	return s.Meta.StartTime == 0 && len(s.Entries) == 0
}

// Lookup returns the entry for a collaborator.
func (s *Snapshot) Lookup(name string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// StartedAt converts Meta.StartTime to a time.Time.
func (s *Snapshot) StartedAt() time.Time {
	return UnixFloat(s.Meta.StartTime)
}

// Date is the local calendar date the snapshot was started on.
func (s *Snapshot) Date() string {
	return s.StartedAt().Local().Format(DateLayout)
}

// UnixFloat converts fractional unix seconds to a time.Time.
func UnixFloat(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9))
}

// FloatUnix converts a time.Time to fractional unix seconds.
func FloatUnix(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// MarshalJSON writes the metadata first, then entries in order.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	meta, err := json.Marshal(s.Meta)
	if err != nil {
		return nil, err
	}
	buf.WriteString(`"*":`)
	buf.Write(meta)

	for _, e := range s.Entries {
		key, err := json.Marshal(e.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.WriteByte(',')
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a snapshot object, keeping key order.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("snapshot must be a JSON object")
	}

	*s = Snapshot{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("unexpected token %v", tok)
		}

		if key == MetaKey {
			if err := dec.Decode(&s.Meta); err != nil {
				return fmt.Errorf("decode %q: %w", key, err)
			}
			continue
		}

		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		e.Name = key
		s.Entries = append(s.Entries, e)
	}

	_, err = dec.Token()
	return err
}
