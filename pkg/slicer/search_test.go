package slicer

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/testutil"
)

func regionNodes(t *testing.T) ([]*model.Node, int) {
	t.Helper()
	res := Convert(testutil.Regions(), Snapshot{}, DefaultOptions())
	return Resolve(res.Nodes, res.MaxLevel()), res.MaxLevel()
}

func TestSearchBelowThresholdReturnsInput(t *testing.T) {
	nodes, levels := regionNodes(t)
	got := Search(nodes, "bo", levels, 3)
	if len(got) != len(nodes) {
		t.Fatalf("expected unfiltered list, got %d of %d", len(got), len(nodes))
	}
	for i := range nodes {
		if got[i] != nodes[i] {
			t.Fatalf("element %d is not the input node", i)
		}
	}
	if len(nodes) > 0 && &got[0] != &nodes[0] {
		t.Error("expected the input slice itself")
	}
}

func TestSearchThresholdCountsRunes(t *testing.T) {
	table := &model.Table{
		Columns: testutil.TextColumns(1),
		Rows:    [][]any{{"Zürich"}, {"Bern"}},
	}
	res := Convert(table, Snapshot{}, DefaultOptions())
	// "zü" is 3 bytes but 2 runes, so it stays below a threshold of 3.
	if got := Search(res.Nodes, "zü", 0, 3); len(got) != 2 {
		t.Errorf("expected input returned for 2-rune query, got %d nodes", len(got))
	}
	if got := Search(res.Nodes, "zür", 0, 3); len(got) != 1 || got[0].Value != "Zürich" {
		t.Errorf("unexpected result %q", testutil.GetOwnIDs(got))
	}
}

func TestSearchBackfillsAncestors(t *testing.T) {
	nodes, levels := regionNodes(t)
	got := Search(nodes, "BOSTON", levels, 3)

	want := []string{
		"East@0", "East@0,MA@1", "East@0,MA@1,Boston@2",
		"West@0", "West@0,CA@1", "West@0,CA@1,Boston Valley@2",
	}
	if ids := testutil.GetOwnIDs(got); !reflect.DeepEqual(ids, want) {
		t.Errorf("search result = %q\nwant            %q", ids, want)
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Order >= got[i].Order {
			t.Errorf("result not in original order at %d", i)
		}
	}
}

func TestSearchMidLevelMatch(t *testing.T) {
	nodes, levels := regionNodes(t)
	// "ny" also matches Albany, which sits below the matched state.
	got := Search(nodes, "ny", levels, 2)
	want := []string{"East@0", "East@0,NY@1", "East@0,NY@1,Albany@2"}
	if ids := testutil.GetOwnIDs(got); !reflect.DeepEqual(ids, want) {
		t.Errorf("search result = %q, want %q", ids, want)
	}
}

func TestSearchNoDuplicates(t *testing.T) {
	nodes, levels := regionNodes(t)
	// "a" matches roots, states and cities, so ancestors are found twice.
	got := Search(nodes, "a", levels, 1)
	testutil.AssertNoDuplicateOwnIDs(t, got)
}

func TestSearchMissingAncestorSkipped(t *testing.T) {
	nodes, levels := regionNodes(t)
	var subset []*model.Node
	for _, n := range nodes {
		if n.OwnID != "East@0,MA@1" {
			subset = append(subset, n)
		}
	}
	got := Search(subset, "boston", levels, 3)
	if testutil.FindNode(got, "East@0,MA@1") != nil {
		t.Error("a node not in the input must never appear")
	}
	if testutil.FindNode(got, "East@0,MA@1,Boston@2") == nil {
		t.Error("the match itself must still be returned")
	}
}

func TestSearchNoMatch(t *testing.T) {
	nodes, levels := regionNodes(t)
	if got := Search(nodes, "zzz", levels, 3); len(got) != 0 {
		t.Errorf("expected no results, got %q", testutil.GetOwnIDs(got))
	}
}

func TestSearchDefaultThreshold(t *testing.T) {
	nodes, levels := regionNodes(t)
	if got := Search(nodes, "ma", levels, 0); len(got) != len(nodes) {
		t.Error("minLen 0 should fall back to the default threshold")
	}
}
