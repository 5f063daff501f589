package slicer

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Search narrows nodes to those whose value contains query (case
// insensitive) plus every ancestor of each match. A query shorter than
// minLen runes leaves the list alone and the input slice is returned as is.
//
// The result only holds nodes from the input (same pointers), without
// duplicates, in the original Order. An ancestor missing from nodes is
// skipped.
func Search(nodes []*model.Node, query string, levels, minLen int) []*model.Node {
	if minLen <= 0 {
		minLen = DefaultSearchMinLength
	}
	query = strings.ToLower(query)
	if utf8.RuneCountInString(query) < minLen {
		return nodes
	}
	defer metrics.TimerN(metrics.Search, len(nodes))()

	type key struct {
		id    string
		level int
	}
	index := make(map[key]*model.Node, len(nodes))
	for _, n := range nodes {
		index[key{n.OwnID, n.Level}] = n
	}

	included := make(map[*model.Node]bool)
	byLevel := make(map[int][]*model.Node)
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.Value), query) {
			included[n] = true
			byLevel[n.Level] = append(byLevel[n.Level], n)
		}
	}

	// Deepest level first, so an ancestor pulled in at level l gets its own
	// parent pulled in at level l-1.
	for l := levels; l >= 1; l-- {
		for _, n := range byLevel[l] {
			parent, ok := index[key{n.ParentID, l - 1}]
			if !ok || included[parent] {
				continue
			}
			included[parent] = true
			byLevel[l-1] = append(byLevel[l-1], parent)
		}
	}

	out := make([]*model.Node, 0, len(included))
	for n := range included {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Order < out[j].Order
	})
	return out
}
