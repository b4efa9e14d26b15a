package types

import "errors"

// Listing line tags. A listing starts with a ROOT line and continues with
// one DIR or FILE line per entry; comparisons emit OK, MISSING and MISMATCH.
const (
	TagRoot     = "ROOT"
	TagDir      = "DIR"
	TagFile     = "FILE"
	TagOK       = "OK"
	TagMissing  = "MISSING"
	TagMismatch = "MISMATCH"
)

// Listing errors.
var (
	ErrMalformedLine   = errors.New("malformed listing line")
	ErrMissingRoot     = errors.New("listing does not start with a ROOT line")
	ErrPathOutsideRoot = errors.New("path is not under the listing root")
	ErrPrimaryKey      = errors.New("primary key failure")
)

// FileInfo describes one filesystem entry. Mode is the raw unix st_mode,
// including file type bits; MTime is fractional unix seconds.
type FileInfo struct {
	Path   string  `json:"path"`
	Mode   uint32  `json:"mode"`
	UID    uint32  `json:"uid"`
	GID    uint32  `json:"gid"`
	MTime  float64 `json:"mtime"`
	Size   int64   `json:"size"`
	Digest string  `json:"digest"`
}

// Mismatch is the payload of a MISMATCH line.
type Mismatch struct {
	Path string   `json:"path"`
	Kind string   `json:"kind"`
	Diff []string `json:"diff"`
}

// Diff lists the JSON names of the fields that differ between a and b,
// in declaration order.
func (a FileInfo) Diff(b FileInfo) []string {
	var diff []string
	if a.Path != b.Path {
		diff = append(diff, "path")
	}
	if a.Mode != b.Mode {
		diff = append(diff, "mode")
	}
	if a.UID != b.UID {
		diff = append(diff, "uid")
	}
	if a.GID != b.GID {
		diff = append(diff, "gid")
	}
	if a.MTime != b.MTime {
		diff = append(diff, "mtime")
	}
	if a.Size != b.Size {
		diff = append(diff, "size")
	}
	if a.Digest != b.Digest {
		diff = append(diff, "digest")
	}
	return diff
}
