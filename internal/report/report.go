// Package report compares two snapshots and renders the daily storage
// report as HTML, plain text, and an email subject.
package report

import (
	"fmt"
	"math"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

type (
	// Row is one collaborator's usage and its change since the previous
	// snapshot.
	Row struct {
		Name       string `json:"name"`
		Files      int64  `json:"files"`
		Bytes      int64  `json:"bytes"`
		DeltaFiles int64  `json:"delta_files"`
		DeltaBytes int64  `json:"delta_bytes"`
	}

	// Report is the comparison of a current snapshot against a previous one.
	Report struct {
		Date    string  `json:"date"`
		Rows    []Row   `json:"rows"`
		Total   Row     `json:"total"`
		Elapsed float64 `json:"elapsed_seconds"` // seconds between the two snapshot start times
	}
)

// Compare builds the report for current against previous. Rows follow the
// order of current; collaborators absent from previous count from zero. An
// empty previous makes this the initial report.
func Compare(previous, current types.Snapshot) Report {
	oldStart := current.Meta.StartTime
	if previous.Meta.StartTime != 0 {
		oldStart = previous.Meta.StartTime
	}

	r := Report{
		Date:    current.Date(),
		Rows:    make([]Row, 0, len(current.Entries)),
		Total:   Row{Name: "Total"},
		Elapsed: current.Meta.StartTime - oldStart,
	}

	for _, e := range current.Entries {
		old, _ := previous.Lookup(e.Name)
		row := Row{
			Name:       e.Name,
			Files:      e.Files,
			Bytes:      e.Bytes,
			DeltaFiles: e.Files - old.Files,
			DeltaBytes: e.Bytes - old.Bytes,
		}
		r.Rows = append(r.Rows, row)

		r.Total.Files += row.Files
		r.Total.Bytes += row.Bytes
		r.Total.DeltaFiles += row.DeltaFiles
		r.Total.DeltaBytes += row.DeltaBytes
	}

	return r
}

// Initial reports whether there was nothing to compare against.
func (r Report) Initial() bool {
	return r.Elapsed == 0
}

// Span splits the elapsed time into whole days and the remaining whole
// hours. Days are floored, so a negative span yields a negative day count
// and a non-negative hour count.
func (r Report) Span() (days, hours int) {
	const day = 24 * 60 * 60
	d := math.Floor(r.Elapsed / day)
	rem := r.Elapsed - d*day
	return int(d), int(rem / 3600)
}

// Subject is the email subject line: total new files, total size change,
// and the snapshot date.
func (r Report) Subject() string {
	return fmt.Sprintf(
		"(%s files, %s) S3 Storage Report for %s",
		Count(r.Total.DeltaFiles),
		StripPadding(SignedHumanSize(r.Total.DeltaBytes)),
		r.Date,
	)
}
