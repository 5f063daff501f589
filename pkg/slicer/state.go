package slicer

import (
	"strings"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// Persisted property objects and names written through Host.
const (
	ObjectGeneral = "general"
	ObjectSearch  = "search"
	ObjectOptions = "options"

	PropSelected        = "selected"
	PropExpanded        = "expanded"
	PropSearchText      = "text"
	PropSelfFilter      = "selfFilterEnabled"
	PropHideEmptyLeaves = "hideEmptyLeaves"
)

// PersistedState is what the host hands back on every update. The id sets
// are delimiter-joined strings, as stored by the host.
type PersistedState struct {
	Selected          string `json:"selected,omitempty"`
	Expanded          string `json:"expanded,omitempty"`
	HideEmptyLeaves   bool   `json:"hide_empty_leaves,omitempty"`
	SearchText        string `json:"search_text,omitempty"`
	SelfFilterEnabled bool   `json:"self_filter_enabled,omitempty"`
}

// Snapshot parses the id sets into the immutable form Convert reads.
func (s PersistedState) Snapshot() Snapshot {
	return Snapshot{
		Selected:        ParseIDSet(s.Selected),
		Expanded:        ParseIDSet(s.Expanded),
		HideEmptyLeaves: s.HideEmptyLeaves,
	}
}

// ParseIDSet splits a persisted id string into a set.
func ParseIDSet(s string) model.IDSet {
	if s == "" {
		return model.NewIDSet()
	}
	return model.NewIDSet(strings.Split(s, SetDelimiter)...)
}

// EncodeIDSet joins a set into its persisted form, sorted so equal sets
// encode equally.
func EncodeIDSet(s model.IDSet) string {
	return strings.Join(s.Sorted(), SetDelimiter)
}

// Property addresses one persisted value.
type Property struct {
	Object string `json:"object"`
	Name   string `json:"name"`
	Value  any    `json:"value,omitempty"`
}

// Patch is a one-way request to merge or remove persisted properties.
type Patch struct {
	Merge  []Property `json:"merge,omitempty"`
	Remove []Property `json:"remove,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return len(p.Merge) == 0 && len(p.Remove) == 0
}

// Apply returns the state with the patch applied. Hosts that keep the
// properties in memory can use it to implement WritePersistedState.
func (s PersistedState) Apply(p Patch) PersistedState {
	for _, prop := range p.Merge {
		s.set(prop, prop.Value)
	}
	for _, prop := range p.Remove {
		s.set(prop, nil)
	}
	return s
}

func (s *PersistedState) set(prop Property, v any) {
	str, _ := v.(string)
	b, _ := v.(bool)
	switch prop.Object + "." + prop.Name {
	case ObjectGeneral + "." + PropSelected:
		s.Selected = str
	case ObjectGeneral + "." + PropExpanded:
		s.Expanded = str
	case ObjectSearch + "." + PropSearchText:
		s.SearchText = str
	case ObjectSearch + "." + PropSelfFilter:
		s.SelfFilterEnabled = b
	case ObjectOptions + "." + PropHideEmptyLeaves:
		s.HideEmptyLeaves = b
	}
}

// Host is the boundary to the environment the slicer runs in. Every call
// is one-way: the slicer never waits for a write to take effect; the host
// applies it and calls Visual.Update again.
type Host interface {
	ReadPersistedState() PersistedState
	WritePersistedState(patch Patch)
	ApplyFilter(expr *model.FilterExpr)
	RenderNodes(nodes []*model.Node)
}
