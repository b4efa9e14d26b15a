// Package verify snapshots directory trees as JSON-lines listings and
// checks a listing against a listing database, e.g. to confirm that a
// copy is identical to its source.
package verify

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/storagereport/pkg/types"
)

// WriteLine writes one "TAG json" line.
func WriteLine(w io.Writer, tag string, v any) error {
	var buf bytes.Buffer
	buf.WriteString(tag)
	buf.WriteByte(' ')

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s line: %w", tag, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// ParseLine splits a line into its tag and JSON payload.
func ParseLine(line string) (string, json.RawMessage, error) {
	line = strings.TrimRight(line, "\r\n")
	tag, data, ok := strings.Cut(line, " ")
	if !ok || tag == "" || !json.Valid([]byte(data)) {
		return "", nil, fmt.Errorf("%w: %q", types.ErrMalformedLine, truncate(line))
	}
	return tag, json.RawMessage(data), nil
}

func truncate(s string) string {
	const max = 80
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// Reader reads a listing: a ROOT line followed by DIR and FILE lines.
type Reader struct {
	r    *bufio.Reader
	root string
	line int
}

// NewReader consumes the ROOT line.
func NewReader(r io.Reader) (*Reader, error) {
	lr := &Reader{r: bufio.NewReaderSize(r, 1<<16)}

	line, err := lr.readLine()
	if errors.Is(err, io.EOF) {
		return nil, types.ErrMissingRoot
	}
	if err != nil {
		return nil, err
	}

	tag, data, err := ParseLine(line)
	if err != nil {
		return nil, err
	}
	if tag != types.TagRoot {
		return nil, fmt.Errorf("%w: first tag is %q", types.ErrMissingRoot, tag)
	}
	if err := json.Unmarshal(data, &lr.root); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrMissingRoot, err)
	}
	return lr, nil
}

// Root is the directory the listing was taken from.
func (lr *Reader) Root() string {
	return lr.root
}

// Next returns the next entry with its path made relative to the root.
// It returns io.EOF after the last entry. Blank lines are skipped.
func (lr *Reader) Next() (string, types.FileInfo, error) {
	for {
		line, err := lr.readLine()
		if err != nil {
			return "", types.FileInfo{}, err
		}
		if strings.TrimSpace(line) == "" {
			continue
		}

		tag, data, err := ParseLine(line)
		if err != nil {
			return "", types.FileInfo{}, fmt.Errorf("line %d: %w", lr.line, err)
		}

		var fi types.FileInfo
		if err := json.Unmarshal(data, &fi); err != nil {
			return "", types.FileInfo{}, fmt.Errorf("line %d: %w: %v", lr.line, types.ErrMalformedLine, err)
		}
		rel, err := Relative(lr.root, fi.Path)
		if err != nil {
			return "", types.FileInfo{}, fmt.Errorf("line %d: %w", lr.line, err)
		}
		fi.Path = rel
		return tag, fi, nil
	}
}

func (lr *Reader) readLine() (string, error) {
	line, err := lr.r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	lr.line++
	return line, nil
}

// Relative returns path relative to root, failing when path is not
// below root.
func Relative(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: %q not under %q", types.ErrPathOutsideRoot, path, root)
	}
	return rel, nil
}
