package datasource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
)

// TableDiff describes how a table changed between two loads of the same
// source. Rows are compared by their leaf path.
type TableDiff struct {
	// Added contains paths present in the new table only
	Added []string
	// Removed contains paths present in the old table only
	Removed []string
	// ColumnsChanged is set when the column names or types differ
	ColumnsChanged bool
	// CountA is the number of rows in the old table
	CountA int
	// CountB is the number of rows in the new table
	CountB int
}

// HasChanges returns true if the tables differ
func (d TableDiff) HasChanges() bool {
	return len(d.Added) > 0 || len(d.Removed) > 0 || d.ColumnsChanged
}

// Summary returns a one-line description of the differences
func (d TableDiff) Summary() string {
	if !d.HasChanges() {
		return fmt.Sprintf("unchanged (%d rows)", d.CountB)
	}
	var parts []string
	if d.ColumnsChanged {
		parts = append(parts, "columns changed")
	}
	if len(d.Added) > 0 {
		parts = append(parts, fmt.Sprintf("+%d rows", len(d.Added)))
	}
	if len(d.Removed) > 0 {
		parts = append(parts, fmt.Sprintf("-%d rows", len(d.Removed)))
	}
	return strings.Join(parts, ", ")
}

// DiffTables compares two tables. Either may be nil.
func DiffTables(a, b *model.Table) TableDiff {
	var d TableDiff
	pathsA := rowPaths(a)
	pathsB := rowPaths(b)
	if a != nil {
		d.CountA = len(a.Rows)
	}
	if b != nil {
		d.CountB = len(b.Rows)
	}

	for p := range pathsB {
		if _, ok := pathsA[p]; !ok {
			d.Added = append(d.Added, p)
		}
	}
	for p := range pathsA {
		if _, ok := pathsB[p]; !ok {
			d.Removed = append(d.Removed, p)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Removed)

	d.ColumnsChanged = !sameColumns(a, b)
	return d
}

func rowPaths(t *model.Table) map[string]struct{} {
	paths := make(map[string]struct{})
	if t == nil {
		return paths
	}
	for _, row := range t.Rows {
		path := make([]string, len(row))
		for i, cell := range row {
			if cell != nil {
				path[i] = fmt.Sprint(cell)
			}
		}
		paths[slicer.OwnID(path)] = struct{}{}
	}
	return paths
}

func sameColumns(a, b *model.Table) bool {
	var ca, cb []model.Column
	if a != nil {
		ca = a.Columns
	}
	if b != nil {
		cb = b.Columns
	}
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i].Name != cb[i].Name || ca[i].Type != cb[i].Type {
			return false
		}
	}
	return true
}
