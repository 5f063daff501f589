package slicer

import (
	"unicode/utf8"

	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Visual runs the slicer pipeline against a Host. It keeps the output of
// the last update so that user actions can be turned into property writes;
// it never keeps selection or expansion state of its own.
type Visual struct {
	host Host
	opts Options

	table   *model.Table
	state   PersistedState
	nodes   []*model.Node
	visible []*model.Node
	levels  int
	search  bool
}

// NewVisual creates a visual bound to host.
func NewVisual(host Host, opts Options) *Visual {
	return &Visual{host: host, opts: opts, levels: -1}
}

// Options returns the settings the visual was created with.
func (v *Visual) Options() Options {
	return v.opts
}

// Update rebuilds the node list from table and the host's current state,
// then hands the ordered visible nodes to the host. A nil table re-runs the
// last one.
func (v *Visual) Update(table *model.Table) {
	defer debug.LogEnterExit("slicer.Update")()

	if table != nil {
		v.table = table
	}
	v.state = v.host.ReadPersistedState()

	res := Convert(v.table, v.state.Snapshot(), v.opts)
	v.levels = res.MaxLevel()
	v.nodes = Resolve(res.Nodes, v.levels)
	v.visible, v.search = v.filterVisible(v.nodes)

	debug.Event("update", "nodes", len(v.nodes), "visible", len(v.visible), "search", v.search)

	stop := metrics.TimerN(metrics.Render, len(v.visible))
	v.host.RenderNodes(v.visible)
	stop()
}

// filterVisible applies the search filter when it is enabled and long
// enough; otherwise it returns the nodes left visible by Resolve.
func (v *Visual) filterVisible(nodes []*model.Node) ([]*model.Node, bool) {
	minLen := v.opts.searchMinLength()
	if !v.state.SelfFilterEnabled || utf8.RuneCountInString(v.state.SearchText) < minLen {
		return VisibleNodes(nodes), false
	}
	found := Search(nodes, v.state.SearchText, v.levels, minLen)
	// A search result is shown as a flat list with its ancestor chains.
	for _, n := range found {
		n.IsHidden = false
	}
	return found, true
}

// Nodes returns every node of the last update.
func (v *Visual) Nodes() []*model.Node {
	return v.nodes
}

// VisibleNodes returns what was last handed to the host for rendering.
func (v *Visual) VisibleNodes() []*model.Node {
	return v.visible
}

// Levels returns the deepest level index, or -1 without data.
func (v *Visual) Levels() int {
	return v.levels
}

// Searching reports whether the last update was narrowed by a search.
func (v *Visual) Searching() bool {
	return v.search
}

// State returns the persisted state read by the last update.
func (v *Visual) State() PersistedState {
	return v.state
}

// Node looks up a node of the last update by ownId.
func (v *Visual) Node(id string) *model.Node {
	for _, n := range v.nodes {
		if n.OwnID == id {
			return n
		}
	}
	return nil
}

// ToggleExpand flips the expand state of a node that has children.
func (v *Visual) ToggleExpand(id string) {
	n := v.Node(id)
	if n == nil || !v.hasChildren(id) {
		return
	}
	expanded := ParseIDSet(v.state.Expanded)
	if expanded.Has(id) {
		expanded = expanded.Without(id)
	} else {
		expanded = expanded.With(id)
	}
	v.writeExpanded(expanded)
}

// SetExpanded expands or collapses a single node.
func (v *Visual) SetExpanded(id string, open bool) {
	expanded := ParseIDSet(v.state.Expanded)
	if expanded.Has(id) == open {
		return
	}
	if open {
		expanded = expanded.With(id)
	} else {
		expanded = expanded.Without(id)
	}
	v.writeExpanded(expanded)
}

// ExpandAll expands every node that has children.
func (v *Visual) ExpandAll() {
	ix := indexNodes(v.nodes)
	ids := make([]string, 0, len(ix.children))
	for id := range ix.children {
		ids = append(ids, id)
	}
	v.writeExpanded(model.NewIDSet(ids...))
}

// CollapseAll clears the expanded set.
func (v *Visual) CollapseAll() {
	v.host.WritePersistedState(Patch{
		Remove: []Property{{Object: ObjectGeneral, Name: PropExpanded}},
	})
}

func (v *Visual) writeExpanded(expanded model.IDSet) {
	v.host.WritePersistedState(Patch{
		Merge: []Property{{Object: ObjectGeneral, Name: PropExpanded, Value: EncodeIDSet(expanded)}},
	})
}

func (v *Visual) hasChildren(id string) bool {
	for _, n := range v.nodes {
		if n.ParentID == id {
			return true
		}
	}
	return false
}

// ToggleSelect flips the selection of a node, persists the new selection
// and applies the matching filter.
func (v *Visual) ToggleSelect(id string) {
	if v.Node(id) == nil {
		return
	}
	selected := ToggleNode(v.nodes, ParseIDSet(v.state.Selected), id, v.opts.SingleSelect)
	v.commitSelection(selected)
}

// ClearSelection drops the selection and clears the host filter.
func (v *Visual) ClearSelection() {
	v.host.WritePersistedState(Patch{
		Remove: []Property{{Object: ObjectGeneral, Name: PropSelected}},
	})
	v.host.ApplyFilter(nil)
}

func (v *Visual) commitSelection(selected model.IDSet) {
	if len(selected) == 0 {
		v.ClearSelection()
		return
	}
	v.host.WritePersistedState(Patch{
		Merge: []Property{{Object: ObjectGeneral, Name: PropSelected, Value: EncodeIDSet(selected)}},
	})
	resolved := Resolve(applySelection(v.nodes, selected), v.levels)
	v.host.ApplyFilter(SelectionFilter(resolved))
}

// Filter returns the filter expression of the current selection.
func (v *Visual) Filter() *model.FilterExpr {
	return SelectionFilter(v.nodes)
}

// SetSearch echoes the search text back to the host. An empty text removes
// it.
func (v *Visual) SetSearch(text string) {
	if text == "" {
		v.host.WritePersistedState(Patch{
			Remove: []Property{{Object: ObjectSearch, Name: PropSearchText}},
		})
		return
	}
	v.host.WritePersistedState(Patch{
		Merge: []Property{
			{Object: ObjectSearch, Name: PropSearchText, Value: text},
			{Object: ObjectSearch, Name: PropSelfFilter, Value: true},
		},
	})
}

// SetHideEmptyLeaves toggles empty-leaf suppression.
func (v *Visual) SetHideEmptyLeaves(hide bool) {
	v.host.WritePersistedState(Patch{
		Merge: []Property{{Object: ObjectOptions, Name: PropHideEmptyLeaves, Value: hide}},
	})
}
