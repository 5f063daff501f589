package model

import (
	"fmt"
	"strings"
)

// ColumnType is the semantic type tag of a table column.
type ColumnType string

const (
	TypeText     ColumnType = "text"
	TypeInteger  ColumnType = "integer"
	TypeNumeric  ColumnType = "numeric"
	TypeBoolean  ColumnType = "boolean"
	TypeDateTime ColumnType = "dateTime"
)

// IsValid reports whether t is one of the known column types.
func (t ColumnType) IsValid() bool {
	switch t {
	case TypeText, TypeInteger, TypeNumeric, TypeBoolean, TypeDateTime:
		return true
	}
	return false
}

// ParseColumnType maps a loose type name (as found in SQL declarations,
// config files or JSON headers) to a ColumnType. Unknown names are text.
func ParseColumnType(s string) ColumnType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "int", "integer", "bigint", "smallint", "tinyint", "int64":
		return TypeInteger
	case "real", "float", "double", "numeric", "decimal", "number", "float64":
		return TypeNumeric
	case "bool", "boolean":
		return TypeBoolean
	case "date", "datetime", "timestamp", "time":
		return TypeDateTime
	default:
		return TypeText
	}
}

// Column describes one hierarchy level. Format is a column-type specific
// format hint: a Go time layout for dateTime, a precision ("0.00") for
// numeric columns, empty for the default rendering.
type Column struct {
	Name   string     `json:"name" yaml:"name"`
	Type   ColumnType `json:"type" yaml:"type"`
	Format string     `json:"format,omitempty" yaml:"format,omitempty"`
}

// Table is the raw tabular input: columns ordered root to leaf, one row per
// leaf path. A nil cell is a null value.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// Depth returns the number of hierarchy levels, taken from the first row.
// Zero means the table carries no renderable data.
func (t *Table) Depth() int {
	if t == nil || len(t.Rows) == 0 || len(t.Columns) == 0 {
		return 0
	}
	return len(t.Rows[0])
}

// Column returns the metadata for column i, defaulting to text when the
// table has fewer columns declared than cells in a row.
func (t *Table) Column(i int) Column {
	if t == nil || i < 0 || i >= len(t.Columns) {
		return Column{Name: fmt.Sprintf("level%d", i), Type: TypeText}
	}
	return t.Columns[i]
}
