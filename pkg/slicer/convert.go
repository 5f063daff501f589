package slicer

import (
	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Snapshot is the persisted state a conversion pass reads. It is never
// modified by the slicer.
type Snapshot struct {
	Selected        model.IDSet
	Expanded        model.IDSet
	HideEmptyLeaves bool
}

// Result is the output of Convert.
type Result struct {
	// Nodes holds one node per distinct ownId, in emission order.
	Nodes []*model.Node
	// Levels is the deepest level index (column count - 1), or nil when the
	// table has no renderable data.
	Levels *int
}

// MaxLevel returns the deepest level index, or -1 for an empty result.
func (r Result) MaxLevel() int {
	if r.Levels == nil {
		return -1
	}
	return *r.Levels
}

// Convert walks the table row by row and emits one node per distinct path
// prefix. The first occurrence of an ownId wins; later duplicates add
// nothing. With snap.HideEmptyLeaves set, a null cell ends the row and the
// node above it becomes a leaf.
//
// The depth is taken from the first row. Shorter rows end early (their last
// node is treated like a ragged parent) and longer rows are truncated.
func Convert(table *model.Table, snap Snapshot, opts Options) Result {
	defer metrics.Timer(metrics.Convert)()

	depth := table.Depth()
	if depth == 0 {
		debug.Log("convert: no renderable data")
		return Result{}
	}
	levels := depth - 1

	columns := make([]model.Column, depth)
	for i := range columns {
		columns[i] = table.Column(i)
	}
	f := NewFormatter(columns, opts)

	nodes := make([]*model.Node, 0, len(table.Rows))
	byID := make(map[string]*model.Node, len(table.Rows))
	var raggedParents []string

	for _, row := range table.Rows {
		width := min(len(row), depth)
		parentID := ""
		var parentExpr *model.FilterExpr
		stopped := false

		for col := 0; col < width; col++ {
			cell := row[col]
			if cell == nil && snap.HideEmptyLeaves {
				if parentID != "" {
					raggedParents = append(raggedParents, parentID)
				}
				stopped = true
				break
			}

			value := f.Format(col, cell)
			id := ChildID(parentID, value, col)

			if existing, ok := byID[id]; ok {
				parentID = existing.OwnID
				parentExpr = existing.FilterExpr
				continue
			}

			expr := extendExpr(parentExpr, columns[col].Name, cell)
			node := &model.Node{
				Value:      value,
				Level:      col,
				OwnID:      id,
				ParentID:   parentID,
				IsLeaf:     col == depth-1,
				IsExpand:   snap.Expanded.Has(id),
				IsHidden:   col != 0,
				Selected:   snap.Selected.Has(id),
				Order:      len(nodes),
				FilterExpr: expr,
			}
			nodes = append(nodes, node)
			byID[id] = node

			parentID = id
			parentExpr = expr
		}

		if !stopped && width < depth && parentID != "" {
			raggedParents = append(raggedParents, parentID)
		}
	}

	// A ragged parent from one row may get proper children from another row,
	// so this only runs once every row has been walked.
	for _, id := range raggedParents {
		if node, ok := byID[id]; ok {
			node.IsLeaf = true
		}
	}

	debug.Event("convert", "rows", len(table.Rows), "nodes", len(nodes),
		"ragged", len(raggedParents), "depth", depth)

	return Result{Nodes: nodes, Levels: &levels}
}
