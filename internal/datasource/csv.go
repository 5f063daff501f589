package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// LoadCSV reads a CSV (or TSV, by extension) file. The first record is the
// header; a header cell may carry a type suffix such as "Year:integer".
// Empty cells are nulls. Rows may be shorter than the header.
func LoadCSV(path string) (*model.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer f.Close()

	comma := ','
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		comma = '\t'
	}
	return ParseCSV(f, comma)
}

// ParseCSV reads CSV content from r.
func ParseCSV(r io.Reader, comma rune) (*model.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &model.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = string(stripBOM([]byte(header[0])))
	}

	table := &model.Table{Columns: make([]model.Column, len(header))}
	for i, h := range header {
		table.Columns[i] = parseHeaderCell(h)
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		if len(record) == 1 && record[0] == "" {
			continue
		}
		row := make([]any, len(record))
		for i, cell := range record {
			if cell != "" {
				row[i] = cell
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func parseHeaderCell(h string) model.Column {
	name, typ, ok := strings.Cut(strings.TrimSpace(h), ":")
	if !ok {
		return model.Column{Name: name, Type: model.TypeText}
	}
	return model.Column{Name: strings.TrimSpace(name), Type: model.ParseColumnType(typ)}
}
