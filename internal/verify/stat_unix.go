//go:build unix

package verify

import (
	"io/fs"
	"syscall"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// statInfo fills a FileInfo from an lstat result, keeping the raw st_mode
// so type bits survive into the listing.
func statInfo(path string, fi fs.FileInfo) types.FileInfo {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return portableInfo(path, fi)
	}
	return types.FileInfo{
		Path:  path,
		Mode:  uint32(st.Mode),
		UID:   st.Uid,
		GID:   st.Gid,
		MTime: mtime(fi),
		Size:  fi.Size(),
	}
}
