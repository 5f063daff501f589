package slicer

import (
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// treeIndex gives parent and child lookups over a flat node list.
type treeIndex struct {
	byID     map[string]*model.Node
	children map[string][]*model.Node
}

func indexNodes(nodes []*model.Node) treeIndex {
	ix := treeIndex{
		byID:     make(map[string]*model.Node, len(nodes)),
		children: make(map[string][]*model.Node),
	}
	for _, n := range nodes {
		ix.byID[n.OwnID] = n
		if n.ParentID != "" {
			ix.children[n.ParentID] = append(ix.children[n.ParentID], n)
		}
	}
	return ix
}

// descendants returns the ownIds below id, depth first.
func (ix treeIndex) descendants(id string) []string {
	var out []string
	var walk func(string)
	walk = func(parent string) {
		for _, c := range ix.children[parent] {
			out = append(out, c.OwnID)
			walk(c.OwnID)
		}
	}
	walk(id)
	return out
}

// ancestors returns the ownIds above id, nearest first.
func (ix treeIndex) ancestors(id string) []string {
	var out []string
	n, ok := ix.byID[id]
	for ok && n.ParentID != "" {
		out = append(out, n.ParentID)
		n, ok = ix.byID[n.ParentID]
	}
	return out
}

// SelectNode returns the selection after checking id: the node, its whole
// subtree and its ancestor chain are selected. Ancestors that end up with
// only some children selected are resolved as partial. With single set, the
// previous selection is dropped first.
func SelectNode(nodes []*model.Node, selected model.IDSet, id string, single bool) model.IDSet {
	ix := indexNodes(nodes)
	if _, ok := ix.byID[id]; !ok {
		return selected
	}
	if single {
		selected = nil
	}
	ids := append([]string{id}, ix.descendants(id)...)
	ids = append(ids, ix.ancestors(id)...)
	return selected.With(ids...)
}

// DeselectNode returns the selection after unchecking id: the node and its
// subtree are cleared, and every ancestor left without a selected child is
// cleared as well.
func DeselectNode(nodes []*model.Node, selected model.IDSet, id string) model.IDSet {
	ix := indexNodes(nodes)
	if _, ok := ix.byID[id]; !ok {
		return selected
	}
	next := selected.Without(append([]string{id}, ix.descendants(id)...)...)
	for _, anc := range ix.ancestors(id) {
		if hasSelectedChild(ix, next, anc) {
			break
		}
		next = next.Without(anc)
	}
	return next
}

func hasSelectedChild(ix treeIndex, selected model.IDSet, id string) bool {
	for _, c := range ix.children[id] {
		if selected.Has(c.OwnID) {
			return true
		}
	}
	return false
}

// ToggleNode flips the selection of id. A partially selected node is
// treated as unchecked, so toggling it selects the whole subtree.
func ToggleNode(nodes []*model.Node, selected model.IDSet, id string, single bool) model.IDSet {
	ix := indexNodes(nodes)
	n, ok := ix.byID[id]
	if !ok {
		return selected
	}
	if selected.Has(id) && !n.PartialSelected {
		if single {
			return model.NewIDSet()
		}
		return DeselectNode(nodes, selected, id)
	}
	return SelectNode(nodes, selected, id, single)
}

// applySelection returns copies of nodes with Selected taken from selected.
func applySelection(nodes []*model.Node, selected model.IDSet) []*model.Node {
	out := make([]*model.Node, len(nodes))
	for i, n := range nodes {
		c := *n
		c.Selected = selected.Has(c.OwnID)
		out[i] = &c
	}
	return out
}
