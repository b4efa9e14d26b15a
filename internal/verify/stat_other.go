//go:build !unix

package verify

import (
	"io/fs"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

func statInfo(path string, fi fs.FileInfo) types.FileInfo {
	return portableInfo(path, fi)
}
