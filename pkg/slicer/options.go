// Package slicer turns hierarchical tabular rows into the node list of a
// checkbox tree slicer and computes its visibility, selection and search
// state.
//
// The pipeline is a chain of pure stages:
//
//	table -> Convert -> Resolve -> Search -> Host.RenderNodes
//
// Each stage returns a fresh collection. Selection and expansion state is
// owned by the host (see Host) and only read back as an immutable Snapshot
// at the start of a conversion pass.
package slicer

import (
	"golang.org/x/text/language"
)

// DefaultEmptyLeafLabel is the display value of a null cell.
const DefaultEmptyLeafLabel = "(blank)"

// DefaultSearchMinLength is the shortest search string that narrows the tree.
const DefaultSearchMinLength = 3

// Options are the slicer settings that do not round-trip through the host's
// persisted properties.
type Options struct {
	// EmptyLeafLabel replaces null cells (and empty strings when
	// EmptyStringIsBlank is set).
	EmptyLeafLabel string
	// EmptyStringIsBlank treats "" cells like nulls for display.
	EmptyStringIsBlank bool
	// SingleSelect restricts the selection to one branch at a time.
	SingleSelect bool
	// SearchMinLength is the search threshold; values <= 0 use the default.
	SearchMinLength int
	// Locale drives number formatting.
	Locale language.Tag
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		EmptyLeafLabel:  DefaultEmptyLeafLabel,
		SearchMinLength: DefaultSearchMinLength,
		Locale:          language.English,
	}
}

func (o Options) emptyLabel() string {
	if o.EmptyLeafLabel == "" {
		return DefaultEmptyLeafLabel
	}
	return o.EmptyLeafLabel
}

func (o Options) searchMinLength() int {
	if o.SearchMinLength <= 0 {
		return DefaultSearchMinLength
	}
	return o.SearchMinLength
}
