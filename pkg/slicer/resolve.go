package slicer

import (
	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Resolve computes IsHidden and PartialSelected for a converted node list.
// It returns copies of the nodes, in the same order; the input is left
// untouched. levels is the deepest level index.
//
// Visibility: roots are always visible. The children of an expanded node are
// visible when that node is a root or its parent is itself expanded and
// visible, so a collapsed ancestor hides its whole subtree even where
// descendants are marked expanded.
//
// Partial selection: a selected node with more children than selected
// children is partial. Nodes without children never are. Hidden nodes are
// resolved the same way as visible ones.
func Resolve(nodes []*model.Node, levels int) []*model.Node {
	defer metrics.TimerN(metrics.Resolve, len(nodes))()

	out := make([]*model.Node, len(nodes))
	for i, n := range nodes {
		c := *n
		c.IsHidden = c.Level != 0
		c.PartialSelected = false
		out[i] = &c
	}

	byLevel := groupByLevel(out, levels)
	resolveVisibility(byLevel)
	resolvePartial(byLevel)
	return out
}

func groupByLevel(nodes []*model.Node, levels int) [][]*model.Node {
	if levels < 0 {
		levels = 0
	}
	byLevel := make([][]*model.Node, levels+1)
	for _, n := range nodes {
		if n.Level < 0 || n.Level > levels {
			continue
		}
		byLevel[n.Level] = append(byLevel[n.Level], n)
	}
	return byLevel
}

func resolveVisibility(byLevel [][]*model.Node) {
	var reachable map[string]bool
	for l := 0; l+1 < len(byLevel); l++ {
		open := make(map[string]bool)
		for _, n := range byLevel[l] {
			if !n.IsExpand {
				continue
			}
			if l == 0 || reachable[n.ParentID] {
				open[n.OwnID] = true
			}
		}
		for _, child := range byLevel[l+1] {
			if open[child.ParentID] {
				child.IsHidden = false
			}
		}
		reachable = open
	}
}

func resolvePartial(byLevel [][]*model.Node) {
	for l := 0; l+1 < len(byLevel); l++ {
		total := make(map[string]int)
		selected := make(map[string]int)
		for _, child := range byLevel[l+1] {
			total[child.ParentID]++
			if child.Selected {
				selected[child.ParentID]++
			}
		}
		for _, n := range byLevel[l] {
			if !n.Selected {
				continue
			}
			if t := total[n.OwnID]; t > 0 && t > selected[n.OwnID] {
				n.PartialSelected = true
			}
		}
	}
}

// VisibleNodes returns the nodes that are not hidden, in order.
func VisibleNodes(nodes []*model.Node) []*model.Node {
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if !n.IsHidden {
			out = append(out, n)
		}
	}
	return out
}
