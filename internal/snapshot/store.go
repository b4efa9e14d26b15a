// Package snapshot builds storage snapshots and keeps them on disk, one
// JSON file per day.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

const fileExt = ".json"

// Store reads and writes snapshots named <dir>/YYYY-MM-DD.json.
type Store struct {
	Dir string
}

// NewStore returns a Store rooted at dir. The directory is created on the
// first Save.
func NewStore(dir string) *Store {
	return &Store{Dir: dir}
}

// Path returns the file holding the snapshot for date.
func (s *Store) Path(date string) string {
	return filepath.Join(s.Dir, date+fileExt)
}

// Save writes the snapshot under the local date of its start time,
// replacing any snapshot already stored for that day.
func (s *Store) Save(snap types.Snapshot) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	path := s.Path(snap.Date())
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return path, nil
}

// Load reads the snapshot stored for date (YYYY-MM-DD).
// Returns ErrSnapshotNotFound if there is none.
func (s *Store) Load(date string) (types.Snapshot, error) {
	if _, err := time.Parse(types.DateLayout, date); err != nil {
		return types.Snapshot{}, fmt.Errorf("invalid snapshot date %q: %w", date, err)
	}

	data, err := os.ReadFile(s.Path(date))
	if errors.Is(err, fs.ErrNotExist) {
		return types.Snapshot{}, fmt.Errorf("%w: %s", types.ErrSnapshotNotFound, date)
	}
	if err != nil {
		return types.Snapshot{}, fmt.Errorf("read snapshot %s: %w", date, err)
	}

	var snap types.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", date, err)
	}
	return snap, nil
}

// LoadDaysAgo reads the snapshot stored for the local date days before now.
func (s *Store) LoadDaysAgo(now time.Time, days int) (types.Snapshot, error) {
	return s.Load(now.Local().AddDate(0, 0, -days).Format(types.DateLayout))
}

// Previous returns the newest snapshot from the lookback days before now,
// skipping today. When none exists it returns an empty snapshot, which
// makes every collaborator's usage count as new. Unreadable or corrupt
// snapshots are errors rather than gaps.
func (s *Store) Previous(now time.Time, lookback int) (types.Snapshot, error) {
	for i := 1; i <= lookback; i++ {
		snap, err := s.LoadDaysAgo(now, i)
		if errors.Is(err, types.ErrSnapshotNotFound) {
			continue
		}
		if err != nil {
			return types.Snapshot{}, err
		}
		return snap, nil
	}
	return types.Snapshot{}, nil
}

// List returns the dates of all stored snapshots, oldest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}

	var dates []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) {
			continue
		}
		date := strings.TrimSuffix(e.Name(), fileExt)
		if _, err := time.Parse(types.DateLayout, date); err != nil {
			continue
		}
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

// Latest returns the most recent stored snapshot.
func (s *Store) Latest() (types.Snapshot, error) {
	dates, err := s.List()
	if err != nil {
		return types.Snapshot{}, err
	}
	if len(dates) == 0 {
		return types.Snapshot{}, types.ErrSnapshotNotFound
	}
	return s.Load(dates[len(dates)-1])
}
