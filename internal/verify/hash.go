package verify

import (
	"context"
	"crypto/sha1" // #nosec G505 -- digests must match listings taken by earlier tools
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// Progress counts what Hash has listed.
type Progress struct {
	Dirs  int64
	Files int64
	Bytes int64
}

// String formats p as the progress log line.
func (p Progress) String() string {
	return fmt.Sprintf("Directories: %s; Files: %s; Bytes: %s",
		humanize.Comma(p.Dirs), humanize.Comma(p.Files), humanize.Comma(p.Bytes))
}

type hashWalk struct {
	v            *Verifier
	w            io.Writer
	buf          []byte
	progress     Progress
	lastReported int64
}

type dirEntry struct {
	name    string
	symlink bool
}

// Hash writes a listing of root to w: a ROOT line, then for every
// directory, top-down and depth first, its subdirectories followed by its
// files, each group sorted by name. Symbolic links are listed but never
// followed; a link to a directory sorts with the directories and is
// written as FILE.
func (v *Verifier) Hash(ctx context.Context, root string, w io.Writer) (Progress, error) {
	info, err := os.Stat(root)
	if err != nil {
		return Progress{}, fmt.Errorf("hash %s: %w", root, err)
	}
	if !info.IsDir() {
		return Progress{}, fmt.Errorf("hash %s: not a directory", root)
	}

	if err := WriteLine(w, types.TagRoot, root); err != nil {
		return Progress{}, err
	}

	hw := &hashWalk{v: v, w: w, buf: make([]byte, v.bufferSize)}
	if err := hw.walk(ctx, root, true); err != nil {
		return hw.progress, err
	}

	v.logger.Info(hw.progress.String())
	return hw.progress, nil
}

func (hw *hashWalk) walk(ctx context.Context, dir string, top bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if top {
			return fmt.Errorf("read %s: %w", dir, err)
		}
		hw.v.logger.Warn("skipping unreadable directory", zap.String("path", dir), zap.Error(err))
		return nil
	}

	var dirs, files []dirEntry
	for _, e := range entries {
		de := dirEntry{name: e.Name(), symlink: e.Type()&fs.ModeSymlink != 0}
		isDir := e.IsDir()
		if de.symlink {
			if target, err := os.Stat(filepath.Join(dir, e.Name())); err == nil {
				isDir = target.IsDir()
			}
		}
		if isDir {
			dirs = append(dirs, de)
		} else {
			files = append(files, de)
		}
	}

	for _, group := range [][]dirEntry{dirs, files} {
		for _, de := range group {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := hw.entry(filepath.Join(dir, de.name)); err != nil {
				return err
			}
		}
	}

	for _, de := range dirs {
		if de.symlink {
			continue
		}
		if err := hw.walk(ctx, filepath.Join(dir, de.name), false); err != nil {
			return err
		}
	}
	return nil
}

func (hw *hashWalk) entry(path string) error {
	fi, err := os.Lstat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	info := statInfo(path, fi)
	info.Digest, err = hw.digest(path, fi)
	if err != nil {
		return err
	}

	tag := types.TagFile
	if fi.IsDir() {
		tag = types.TagDir
		hw.progress.Dirs++
	} else {
		hw.progress.Files++
		hw.progress.Bytes += info.Size
	}
	if err := WriteLine(hw.w, tag, info); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	if hw.progress.Bytes-hw.lastReported >= hw.v.reportBytes {
		hw.v.logger.Info(hw.progress.String())
		hw.lastReported = hw.progress.Bytes
	}
	return nil
}

// digest hashes file contents, the target of a symbolic link, or nothing
// for any other kind of entry.
func (hw *hashWalk) digest(path string, fi fs.FileInfo) (string, error) {
	h := sha1.New() // #nosec G401
	switch {
	case fi.Mode().IsRegular():
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		// Hide WriterTo so the copy goes through buf.
		if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, hw.buf); err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	case fi.Mode()&fs.ModeSymlink != 0:
		target, err := os.Readlink(path)
		if err != nil {
			return "", fmt.Errorf("readlink %s: %w", path, err)
		}
		h.Write([]byte(target))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
