package slicer

import (
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Equals builds a column equality expression. A nil value stands for a
// blank cell; its meaning is up to the host.
func Equals(column string, value any) *model.FilterExpr {
	return &model.FilterExpr{Op: model.OpEquals, Column: column, Value: value}
}

// And joins operands. A single operand is returned as is.
func And(operands ...*model.FilterExpr) *model.FilterExpr {
	return join(model.OpAnd, operands)
}

// Or joins operands. A single operand is returned as is.
func Or(operands ...*model.FilterExpr) *model.FilterExpr {
	return join(model.OpOr, operands)
}

func join(op model.FilterOp, operands []*model.FilterExpr) *model.FilterExpr {
	flat := make([]*model.FilterExpr, 0, len(operands))
	for _, o := range operands {
		if o == nil {
			continue
		}
		if o.Op == op {
			flat = append(flat, o.Operands...)
			continue
		}
		flat = append(flat, o)
	}
	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &model.FilterExpr{Op: op, Operands: flat}
}

// extendExpr appends one level to the path expression of a parent node.
func extendExpr(parent *model.FilterExpr, column string, raw any) *model.FilterExpr {
	return And(parent, Equals(column, raw))
}

// SelectionFilter composes the filter for a resolved node list: the
// expressions of the top-most covered nodes, OR-ed together. A node is
// covered when it is selected and every child is covered, so an unselected
// node anywhere below keeps its ancestors out of the filter. It returns nil
// when nothing is selected.
func SelectionFilter(nodes []*model.Node) *model.FilterExpr {
	covered := coveredNodes(nodes)

	var exprs []*model.FilterExpr
	for _, n := range nodes {
		if !covered[n.OwnID] || covered[n.ParentID] {
			continue
		}
		exprs = append(exprs, n.FilterExpr)
	}
	return Or(exprs...)
}

// coveredNodes walks the levels bottom-up. PartialSelected cannot stand in:
// it only looks at direct children.
func coveredNodes(nodes []*model.Node) map[string]bool {
	maxLevel := 0
	for _, n := range nodes {
		maxLevel = max(maxLevel, n.Level)
	}
	byLevel := make([][]*model.Node, maxLevel+1)
	for _, n := range nodes {
		byLevel[n.Level] = append(byLevel[n.Level], n)
	}

	covered := make(map[string]bool, len(nodes))
	uncoveredChild := make(map[string]bool)
	for l := maxLevel; l >= 0; l-- {
		next := make(map[string]bool)
		for _, n := range byLevel[l] {
			if n.Selected && !uncoveredChild[n.OwnID] {
				covered[n.OwnID] = true
			} else if n.ParentID != "" {
				next[n.ParentID] = true
			}
		}
		uncoveredChild = next
	}
	return covered
}
