// Package model holds the data types shared by the slicer core, its data
// sources and the terminal host.
package model

import (
	"sort"
	"strings"
)

// Node is one unique hierarchy path segment produced by the converter.
//
// OwnID identifies the full value path from the root down to this node and is
// stable across updates as long as the underlying values do not change.
// IsHidden and PartialSelected are computed by the resolver; every other
// field is set when the node is converted.
type Node struct {
	Value           string      `json:"value"`
	Level           int         `json:"level"`
	OwnID           string      `json:"own_id"`
	ParentID        string      `json:"parent_id"`
	IsLeaf          bool        `json:"is_leaf"`
	IsExpand        bool        `json:"is_expand"`
	IsHidden        bool        `json:"is_hidden"`
	Selected        bool        `json:"selected"`
	PartialSelected bool        `json:"partial_selected"`
	Order           int         `json:"order"`
	FilterExpr      *FilterExpr `json:"filter,omitempty"`
}

// IsRoot reports whether the node sits at the top of the hierarchy.
func (n *Node) IsRoot() bool {
	return n.ParentID == ""
}

// IDSet is an immutable snapshot of ownIds (selected or expanded).
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids, skipping empty strings.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is a member. A nil set has no members.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// With returns a copy of the set including ids.
func (s IDSet) With(ids ...string) IDSet {
	out := make(IDSet, len(s)+len(ids))
	for id := range s {
		out[id] = struct{}{}
	}
	for _, id := range ids {
		if id != "" {
			out[id] = struct{}{}
		}
	}
	return out
}

// Without returns a copy of the set excluding ids.
func (s IDSet) Without(ids ...string) IDSet {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := make(IDSet, len(s))
	for id := range s {
		if !drop[id] {
			out[id] = struct{}{}
		}
	}
	return out
}

// Sorted returns the members in lexical order.
func (s IDSet) Sorted() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// String renders the set for debug output.
func (s IDSet) String() string {
	return "{" + strings.Join(s.Sorted(), " | ") + "}"
}
