package verify

import (
	"io/fs"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// Unix file type bits, used where the platform has no st_mode.
const (
	modeDir     = 0o040000
	modeRegular = 0o100000
	modeSymlink = 0o120000
)

// portableInfo synthesizes st_mode from the Go file mode. Ownership is
// reported as zero.
func portableInfo(path string, fi fs.FileInfo) types.FileInfo {
	mode := uint32(fi.Mode().Perm())
	switch {
	case fi.IsDir():
		mode |= modeDir
	case fi.Mode()&fs.ModeSymlink != 0:
		mode |= modeSymlink
	case fi.Mode().IsRegular():
		mode |= modeRegular
	}
	return types.FileInfo{
		Path:  path,
		Mode:  mode,
		MTime: mtime(fi),
		Size:  fi.Size(),
	}
}

// mtime is the modification time in fractional unix seconds, computed
// the way stat results are usually converted to a float.
func mtime(fi fs.FileInfo) float64 {
	t := fi.ModTime()
	return float64(t.Unix()) + float64(t.Nanosecond())*1e-9
}
