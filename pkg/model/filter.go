package model

import (
	"fmt"
	"strings"
)

// FilterOp is the operator of a filter expression node.
type FilterOp string

const (
	OpEquals FilterOp = "eq"
	OpAnd    FilterOp = "and"
	OpOr     FilterOp = "or"
)

// FilterExpr is an opaque filter expression handed to the host. The slicer
// only composes these; it never evaluates them.
type FilterExpr struct {
	Op       FilterOp      `json:"op"`
	Column   string        `json:"column,omitempty"`
	Value    any           `json:"value,omitempty"`
	Operands []*FilterExpr `json:"operands,omitempty"`
}

// String renders the expression in a compact, human readable form.
func (e *FilterExpr) String() string {
	if e == nil {
		return ""
	}
	switch e.Op {
	case OpEquals:
		return e.Column + " = " + quoteValue(e.Value)
	case OpAnd, OpOr:
		parts := make([]string, 0, len(e.Operands))
		for _, op := range e.Operands {
			s := op.String()
			if op.Op != OpEquals && len(e.Operands) > 1 {
				s = "(" + s + ")"
			}
			parts = append(parts, s)
		}
		sep := " AND "
		if e.Op == OpOr {
			sep = " OR "
		}
		return strings.Join(parts, sep)
	}
	return string(e.Op)
}

func quoteValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	default:
		return fmt.Sprint(x)
	}
}
