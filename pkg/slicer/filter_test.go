package slicer

import (
	"testing"

	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/testutil"
)

func TestJoinFlattensAndDropsNil(t *testing.T) {
	a := Equals("A", "x")
	b := Equals("B", "y")
	c := Equals("C", "z")

	if And() != nil {
		t.Error("And() should be nil")
	}
	if got := And(nil, a); got != a {
		t.Error("a single operand should be returned as is")
	}
	got := And(And(a, b), c)
	if got.Op != model.OpAnd || len(got.Operands) != 3 {
		t.Errorf("expected flat AND of 3, got %s", got)
	}
	mixed := Or(And(a, b), c)
	if mixed.Op != model.OpOr || len(mixed.Operands) != 2 {
		t.Errorf("AND inside OR must not be flattened, got %s", mixed)
	}
	if want := "(A = 'x' AND B = 'y') OR C = 'z'"; mixed.String() != want {
		t.Errorf("String() = %q, want %q", mixed.String(), want)
	}
}

func TestSelectionFilter(t *testing.T) {
	nodes, levels := regionNodes(t)

	if SelectionFilter(nodes) != nil {
		t.Error("expected nil filter without selection")
	}

	sel := SelectNode(nodes, nil, "East@0,MA@1", false)
	sel = SelectNode(nodes, sel, "West@0", false)
	resolved := Resolve(applySelection(nodes, sel), levels)

	got := SelectionFilter(resolved).String()
	want := "(Region = 'East' AND State = 'MA') OR Region = 'West'"
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestSelectionFilterNullValue(t *testing.T) {
	nodes, levels := regionNodes(t)
	sel := SelectNode(nodes, nil, "West@0,WA@1,(blank)@2", false)
	resolved := Resolve(applySelection(nodes, sel), levels)

	// WA is fully selected (its only child is the blank leaf), so it covers
	// the leaf.
	got := SelectionFilter(resolved).String()
	want := "Region = 'West' AND State = 'WA'"
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}

	leaf := SelectionFilter([]*model.Node{testutil.FindNode(resolved, "West@0,WA@1,(blank)@2")}).String()
	if want := "Region = 'West' AND State = 'WA' AND City = null"; leaf != want {
		t.Errorf("leaf filter = %q, want %q", leaf, want)
	}
}

func TestSelectionFilterDeselectedGrandchild(t *testing.T) {
	nodes, levels := regionNodes(t)
	sel := SelectNode(nodes, nil, "East@0", false)
	sel = ToggleNode(applySelection(nodes, sel), sel, "East@0,MA@1,Boston@2", false)
	resolved := Resolve(applySelection(nodes, sel), levels)

	if east := testutil.FindNode(resolved, "East@0"); !east.Selected || east.PartialSelected {
		t.Fatalf("East should stay selected and not partial: %+v", east)
	}
	got := SelectionFilter(resolved).String()
	want := "(Region = 'East' AND State = 'MA' AND City = 'Cambridge') OR (Region = 'East' AND State = 'NY')"
	if got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}
}

func TestSelectionFilterEmitsTopMostCoveredOnly(t *testing.T) {
	nodes, levels := regionNodes(t)
	sel := SelectNode(nodes, nil, "East@0", false)
	resolved := Resolve(applySelection(nodes, sel), levels)

	if got := SelectionFilter(resolved).String(); got != "Region = 'East'" {
		t.Errorf("filter = %q, want only the East expression", got)
	}
}
