// Package datasource reads hierarchy tables from SQLite databases, CSV files
// and JSONL files. Every source yields a model.Table: columns ordered root
// to leaf, one row per leaf path, nil for null cells.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// SourceType identifies the type of data source
type SourceType string

const (
	// SourceTypeSQLite is a SQLite database queried with Query
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeCSV is a CSV file with a header row
	SourceTypeCSV SourceType = "csv"
	// SourceTypeJSONL is a JSONL file with one JSON array per row
	SourceTypeJSONL SourceType = "jsonl"
)

// ErrUnsupportedSource is returned for files whose type cannot be detected.
var ErrUnsupportedSource = errors.New("unsupported data source")

// DataSource describes where a table comes from.
type DataSource struct {
	// Type identifies the source type
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// Query selects the hierarchy columns (SQLite only). Empty selects every
	// column of the first table.
	Query string `json:"query,omitempty"`
	// Columns overrides the detected column metadata, by position
	Columns []model.Column `json:"columns,omitempty"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	return fmt.Sprintf("%s (%s, mod=%s, %d bytes)",
		s.Path, s.Type, s.ModTime.Format(time.RFC3339), s.Size)
}

// DetectSource classifies path by extension and stats it.
func DetectSource(path string) (DataSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return DataSource{}, fmt.Errorf("resolving %s: %w", path, err)
	}

	var typ SourceType
	switch strings.ToLower(filepath.Ext(abs)) {
	case ".db", ".sqlite", ".sqlite3":
		typ = SourceTypeSQLite
	case ".csv", ".tsv":
		typ = SourceTypeCSV
	case ".jsonl", ".ndjson":
		typ = SourceTypeJSONL
	default:
		return DataSource{}, fmt.Errorf("%w: %s", ErrUnsupportedSource, path)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("cannot stat %s: %w", abs, err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%w: %s is a directory", ErrUnsupportedSource, abs)
	}

	return DataSource{
		Type:    typ,
		Path:    abs,
		ModTime: info.ModTime(),
		Size:    info.Size(),
	}, nil
}

// applyColumns overlays configured column metadata on detected columns.
// Configured entries win where they set a field.
func applyColumns(detected, configured []model.Column) []model.Column {
	if len(configured) == 0 {
		return detected
	}
	n := max(len(detected), len(configured))
	out := make([]model.Column, n)
	copy(out, detected)
	for i, c := range configured {
		if c.Name != "" {
			out[i].Name = c.Name
		}
		if c.Type != "" {
			out[i].Type = c.Type
		}
		if c.Format != "" {
			out[i].Format = c.Format
		}
	}
	for i := range out {
		if out[i].Type == "" {
			out[i].Type = model.TypeText
		}
	}
	return out
}
