package datasource

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// DefaultMaxBufferSize is the largest JSONL line read at once (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// ParseOptions configures ParseJSONL.
type ParseOptions struct {
	// WarningHandler receives warnings about skipped lines. If nil, warnings
	// go to os.Stderr (suppressed in robot mode).
	WarningHandler func(string)

	// BufferSize sets the maximum line size. If 0, uses DefaultMaxBufferSize.
	BufferSize int
}

// header is the optional first line of a JSONL table.
type header struct {
	Columns []model.Column `json:"columns"`
}

// LoadJSONL reads a JSONL table from path.
func LoadJSONL(path string, opts ParseOptions) (*model.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open jsonl file: %w", err)
	}
	defer file.Close()

	return ParseJSONL(file, opts)
}

// ParseJSONL parses a JSONL table. The first non-empty line may be a header
// object {"columns": [...]}; every other line holds one row, either as a
// JSON array or, after a header, as an object keyed by column name. Without
// a header the columns are named after their level.
// Malformed lines are skipped with a warning.
func ParseJSONL(r io.Reader, opts ParseOptions) (*model.Table, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)

	warn := opts.WarningHandler
	if warn == nil {
		if os.Getenv("SLICER_ROBOT") == "1" {
			warn = func(string) {}
		} else {
			warn = func(msg string) {
				fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
			}
		}
	}

	table := &model.Table{}
	seenHeader := false
	lineNum := 0
	for {
		lineNum++
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading jsonl stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err != nil && err != io.EOF {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
				if err == io.EOF {
					break
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		if line[0] == '{' {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(line, &obj); err != nil {
				warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
				continue
			}
			if _, ok := obj["columns"]; ok && !seenHeader {
				if len(table.Rows) > 0 {
					warn(fmt.Sprintf("skipping line %d: header must be the first line", lineNum))
					continue
				}
				var h header
				if err := json.Unmarshal(line, &h); err != nil {
					warn(fmt.Sprintf("skipping malformed header on line %d: %v", lineNum, err))
					continue
				}
				for i := range h.Columns {
					h.Columns[i].Type = model.ParseColumnType(string(h.Columns[i].Type))
				}
				table.Columns = h.Columns
				seenHeader = true
				continue
			}
			if !seenHeader {
				warn(fmt.Sprintf("skipping line %d: object rows need a header line", lineNum))
				continue
			}
			row, err := objectRow(obj, table.Columns)
			if err != nil {
				warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
				continue
			}
			table.Rows = append(table.Rows, row)
			continue
		}

		var row []any
		if err := json.Unmarshal(line, &row); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	if !seenHeader && len(table.Rows) > 0 {
		table.Columns = make([]model.Column, len(table.Rows[0]))
		for i := range table.Columns {
			table.Columns[i] = model.Column{Name: fmt.Sprintf("level%d", i), Type: model.TypeText}
		}
	}
	return table, nil
}

// objectRow maps an object line onto the header columns by name. Missing
// keys become null cells; unknown keys are ignored.
func objectRow(obj map[string]json.RawMessage, cols []model.Column) ([]any, error) {
	row := make([]any, len(cols))
	for i, c := range cols {
		raw, ok := obj[c.Name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &row[i]); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
	}
	return row, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
