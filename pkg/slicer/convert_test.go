package slicer

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/testutil"
)

func TestConvertScenario(t *testing.T) {
	res := Convert(testutil.Scenario(), Snapshot{}, DefaultOptions())

	wantIDs := []string{
		"@0", "@0,2@1", "@0,6@1",
		"1@0", "1@0,1@1", "1@0,5@1",
		"2@0", "2@0,@1", "2@0,3@1",
	}
	if got := testutil.GetOwnIDs(res.Nodes); !reflect.DeepEqual(got, wantIDs) {
		t.Fatalf("ownIds = %q\nwant     %q", got, wantIDs)
	}
	if res.Levels == nil || *res.Levels != 1 {
		t.Fatalf("expected levels 1, got %v", res.Levels)
	}

	testutil.AssertNoDuplicateOwnIDs(t, res.Nodes)
	testutil.AssertAncestorChains(t, res.Nodes)
	testutil.AssertOrderSequential(t, res.Nodes)

	roots := 0
	for _, n := range res.Nodes {
		if n.Level == 0 {
			roots++
			if n.IsLeaf || n.IsHidden {
				t.Errorf("root %s: leaf=%v hidden=%v", n.OwnID, n.IsLeaf, n.IsHidden)
			}
		} else if !n.IsLeaf || !n.IsHidden {
			t.Errorf("child %s: leaf=%v hidden=%v", n.OwnID, n.IsLeaf, n.IsHidden)
		}
	}
	if roots != 3 {
		t.Errorf("expected 3 roots, got %d", roots)
	}
}

func TestConvertEmpty(t *testing.T) {
	tests := []struct {
		name  string
		table *model.Table
	}{
		{"nil table", nil},
		{"no rows", &model.Table{Columns: testutil.TextColumns(2)}},
		{"no columns", &model.Table{Rows: [][]any{{"a"}}}},
	}
	for _, tt := range tests {
		res := Convert(tt.table, Snapshot{}, DefaultOptions())
		if len(res.Nodes) != 0 || res.Levels != nil {
			t.Errorf("%s: expected empty result, got %d nodes, levels %v", tt.name, len(res.Nodes), res.Levels)
		}
		if res.MaxLevel() != -1 {
			t.Errorf("%s: MaxLevel = %d", tt.name, res.MaxLevel())
		}
	}
}

func TestConvertFirstOccurrenceWins(t *testing.T) {
	table := &model.Table{
		Columns: testutil.TextColumns(2),
		Rows: [][]any{
			{"a", "x"},
			{"b", "y"},
			{"a", "x"},
			{"a", "z"},
		},
	}
	res := Convert(table, Snapshot{}, DefaultOptions())
	want := []string{"a@0", "a@0,x@1", "b@0", "b@0,y@1", "a@0,z@1"}
	if got := testutil.GetOwnIDs(res.Nodes); !reflect.DeepEqual(got, want) {
		t.Errorf("ownIds = %q, want %q", got, want)
	}
	testutil.AssertOrderSequential(t, res.Nodes)
}

func TestConvertSnapshotFlags(t *testing.T) {
	snap := Snapshot{
		Selected: model.NewIDSet("1@0", "1@0,5@1"),
		Expanded: model.NewIDSet("1@0"),
	}
	res := Convert(testutil.Scenario(), snap, DefaultOptions())
	byID := testutil.BuildNodeMap(res.Nodes)

	if !byID["1@0"].IsExpand || byID["2@0"].IsExpand {
		t.Error("expand flags not taken from snapshot")
	}
	if !byID["1@0"].Selected || !byID["1@0,5@1"].Selected || byID["1@0,1@1"].Selected {
		t.Error("selected flags not taken from snapshot")
	}
	// The snapshot must not be modified.
	if len(snap.Selected) != 2 || len(snap.Expanded) != 1 {
		t.Error("snapshot was modified")
	}
}

func TestConvertNullsShowLabel(t *testing.T) {
	table := &model.Table{
		Columns: testutil.TextColumns(3),
		Rows: [][]any{
			{"East", "MA", "Boston"},
			{"East", nil, "Nowhere"},
		},
	}
	res := Convert(table, Snapshot{}, DefaultOptions())
	n := testutil.FindNode(res.Nodes, "East@0,(blank)@1,Nowhere@2")
	if n == nil {
		t.Fatalf("expected a blank-labelled middle node, got %q", testutil.GetOwnIDs(res.Nodes))
	}
	if blank := testutil.FindNode(res.Nodes, "East@0,(blank)@1"); blank == nil || blank.Value != "(blank)" || blank.IsLeaf {
		t.Errorf("unexpected blank node %+v", blank)
	}
}

func TestConvertHideEmptyLeaves(t *testing.T) {
	table := &model.Table{
		Columns: testutil.TextColumns(3),
		Rows: [][]any{
			{"East", "MA", "Boston"},
			{"West", "WA", nil},
			{"West", nil, nil},
			{"North", nil, "Orphan"},
		},
	}
	res := Convert(table, Snapshot{HideEmptyLeaves: true}, DefaultOptions())
	byID := testutil.BuildNodeMap(res.Nodes)

	if _, ok := byID["West@0,WA@1,(blank)@2"]; ok {
		t.Error("null leaf should be suppressed")
	}
	wa := byID["West@0,WA@1"]
	if wa == nil || !wa.IsLeaf {
		t.Errorf("expected WA to become a ragged leaf, got %+v", wa)
	}
	// Row 3 stops directly below West, which flags it even though WA exists.
	if west := byID["West@0"]; west == nil || !west.IsLeaf {
		t.Errorf("expected West to be flagged as a leaf, got %+v", west)
	}
	if !byID["North@0"].IsLeaf {
		t.Error("a null mid-row stops the row, North should be a leaf")
	}
	if _, ok := byID["North@0,(blank)@1,Orphan@2"]; ok {
		t.Error("cells after a null must not be emitted")
	}
	testutil.AssertAncestorChains(t, res.Nodes)
}

func TestConvertRaggedFixupRunsAfterAllRows(t *testing.T) {
	table := &model.Table{
		Columns: testutil.TextColumns(2),
		Rows: [][]any{
			{"a", "x"},
			{"b", nil},
			{"b", "y"},
		},
	}
	res := Convert(table, Snapshot{HideEmptyLeaves: true}, DefaultOptions())
	byID := testutil.BuildNodeMap(res.Nodes)
	// b is flagged ragged by row 2 even though row 3 gives it a child.
	if !byID["b@0"].IsLeaf {
		t.Error("expected b to be flagged as leaf by the ragged row")
	}
	if !byID["b@0,y@1"].IsLeaf {
		t.Error("expected y to be a leaf")
	}
}

func TestConvertShortAndLongRows(t *testing.T) {
	table := &model.Table{
		Columns: testutil.TextColumns(3),
		Rows: [][]any{
			{"a", "b", "c"},
			{"d"},
			{"e", "f", "g", "extra"},
		},
	}
	res := Convert(table, Snapshot{}, DefaultOptions())
	byID := testutil.BuildNodeMap(res.Nodes)
	if !byID["d@0"].IsLeaf {
		t.Error("a short row's last node should be a leaf")
	}
	if _, ok := byID["e@0,f@1,g@2,extra@3"]; ok {
		t.Error("cells past the depth must be ignored")
	}
	if *res.Levels != 2 {
		t.Errorf("levels = %d, want 2", *res.Levels)
	}
}

func TestConvertFilterExpr(t *testing.T) {
	res := Convert(testutil.Regions(), Snapshot{}, DefaultOptions())
	n := testutil.FindNode(res.Nodes, "East@0,MA@1,Boston@2")
	if n == nil {
		t.Fatal("Boston missing")
	}
	want := "Region = 'East' AND State = 'MA' AND City = 'Boston'"
	if got := n.FilterExpr.String(); got != want {
		t.Errorf("filter = %q, want %q", got, want)
	}

	root := testutil.FindNode(res.Nodes, "East@0")
	if got := root.FilterExpr.String(); got != "Region = 'East'" {
		t.Errorf("root filter = %q", got)
	}

	blank := testutil.FindNode(res.Nodes, "West@0,WA@1,(blank)@2")
	if blank == nil {
		t.Fatal("blank leaf missing")
	}
	// The raw cell, not the display label, goes into the filter.
	if got := blank.FilterExpr.Operands[2].Value; got != nil {
		t.Errorf("expected nil raw value, got %#v", got)
	}
}

func TestConvertTypedColumns(t *testing.T) {
	table := &model.Table{
		Columns: []model.Column{
			{Name: "Year", Type: model.TypeInteger},
			{Name: "Active", Type: model.TypeBoolean},
		},
		Rows: [][]any{{int64(2024), int64(1)}},
	}
	res := Convert(table, Snapshot{}, DefaultOptions())
	if got := testutil.GetOwnIDs(res.Nodes); !reflect.DeepEqual(got, []string{"2024@0", "2024@0,True@1"}) {
		t.Errorf("ownIds = %q", got)
	}
	if v := res.Nodes[1].FilterExpr.Operands[1].Value; v != int64(1) {
		t.Errorf("expected raw cell in filter, got %#v", v)
	}
}

func TestConvertLarge(t *testing.T) {
	table := testutil.NewDefault().Balanced(4, 4)
	res := Convert(table, Snapshot{}, DefaultOptions())
	// 4 + 16 + 64 + 256 distinct prefixes.
	testutil.AssertNodeCount(t, res.Nodes, 340)
	testutil.AssertNoDuplicateOwnIDs(t, res.Nodes)
	testutil.AssertAncestorChains(t, res.Nodes)
}

func BenchmarkConvert(b *testing.B) {
	table := testutil.New(testutil.GeneratorConfig{Seed: 1, NullRate: 0.05}).Random(10000, 4, 12)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Convert(table, Snapshot{HideEmptyLeaves: true}, DefaultOptions())
	}
}
