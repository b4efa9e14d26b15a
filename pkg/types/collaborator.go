package types

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Collaborator is a group whose data is kept in the S3 buffer. An empty
// Bucket means the collaborator is listed in reports but nothing is scanned.
type Collaborator struct {
	Name   string `mapstructure:"name" json:"name"`
	Bucket string `mapstructure:"s3_bucket" json:"s3_bucket"`
}

// Collaborator list errors.
var (
	ErrNoCollaborators       = errors.New("no collaborators configured")
	ErrDuplicateCollaborator = errors.New("duplicate collaborator")
	ErrCollaboratorColumns   = errors.New("collaborators file needs name and s3_bucket columns")
)

// CSV column names in the collaborators file.
const (
	ColumnName   = "name"
	ColumnBucket = "s3_bucket"
)

// ReadCollaborators parses a collaborators CSV file. The first row is a
// header; columns are located by name and extra columns are ignored.
func ReadCollaborators(r io.Reader) ([]Collaborator, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoCollaborators
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	nameCol, bucketCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case ColumnName:
			nameCol = i
		case ColumnBucket:
			bucketCol = i
		}
	}
	if nameCol < 0 || bucketCol < 0 {
		return nil, ErrCollaboratorColumns
	}

	var collabs []Collaborator
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read collaborators: %w", err)
		}
		collabs = append(collabs, Collaborator{
			Name:   field(rec, nameCol),
			Bucket: field(rec, bucketCol),
		})
	}

	if err := CheckCollaborators(collabs); err != nil {
		return nil, err
	}
	return collabs, nil
}

// CheckCollaborators rejects empty lists, blank names, and duplicate names.
func CheckCollaborators(collabs []Collaborator) error {
	if len(collabs) == 0 {
		return ErrNoCollaborators
	}
	seen := make(map[string]bool, len(collabs))
	for _, c := range collabs {
		if c.Name == "" {
			return ErrCollaboratorNameless
		}
		if c.Name == MetaKey {
			return fmt.Errorf("%w: %q is reserved", ErrDuplicateCollaborator, c.Name)
		}
		if seen[c.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateCollaborator, c.Name)
		}
		seen[c.Name] = true
	}
	return nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
