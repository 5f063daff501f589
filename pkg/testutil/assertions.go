package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// AssertNodeCount verifies the expected number of nodes.
func AssertNodeCount(t *testing.T, nodes []*model.Node, expected int) {
	t.Helper()
	if len(nodes) != expected {
		t.Errorf("expected %d nodes, got %d", expected, len(nodes))
	}
}

// AssertNoDuplicateOwnIDs verifies every ownId occurs once.
func AssertNoDuplicateOwnIDs(t *testing.T, nodes []*model.Node) {
	t.Helper()
	seen := make(map[string]bool)
	for _, n := range nodes {
		if seen[n.OwnID] {
			t.Errorf("duplicate ownId: %s", n.OwnID)
		}
		seen[n.OwnID] = true
	}
}

// AssertAncestorChains verifies that every non-root node's parent is present
// one level up and was emitted before it.
func AssertAncestorChains(t *testing.T, nodes []*model.Node) {
	t.Helper()
	byID := BuildNodeMap(nodes)
	for _, n := range nodes {
		if n.ParentID == "" {
			if n.Level != 0 {
				t.Errorf("node %s at level %d has no parent", n.OwnID, n.Level)
			}
			continue
		}
		p, ok := byID[n.ParentID]
		if !ok {
			t.Errorf("node %s: parent %s missing", n.OwnID, n.ParentID)
			continue
		}
		if p.Level != n.Level-1 {
			t.Errorf("node %s at level %d: parent at level %d", n.OwnID, n.Level, p.Level)
		}
		if p.Order >= n.Order {
			t.Errorf("node %s (order %d) precedes its parent (order %d)", n.OwnID, n.Order, p.Order)
		}
		if !strings.HasPrefix(n.OwnID, p.OwnID+",") {
			t.Errorf("node %s does not extend parent id %s", n.OwnID, p.OwnID)
		}
	}
}

// AssertOrderSequential verifies Order counts 0..len-1 in slice order.
func AssertOrderSequential(t *testing.T, nodes []*model.Node) {
	t.Helper()
	for i, n := range nodes {
		if n.Order != i {
			t.Errorf("node %s: order %d at index %d", n.OwnID, n.Order, i)
			return
		}
	}
}

// AssertVisibilityConsistent verifies that a visible non-root node has a
// visible, expanded parent. It does not hold for search results.
func AssertVisibilityConsistent(t *testing.T, nodes []*model.Node) {
	t.Helper()
	byID := BuildNodeMap(nodes)
	for _, n := range nodes {
		if n.Level == 0 {
			if n.IsHidden {
				t.Errorf("root %s is hidden", n.OwnID)
			}
			continue
		}
		if n.IsHidden {
			continue
		}
		p := byID[n.ParentID]
		if p == nil || p.IsHidden || !p.IsExpand {
			t.Errorf("node %s visible under a hidden or collapsed parent", n.OwnID)
		}
	}
}

// AssertJSONEqual compares two values by their JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()
	e, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	a, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(e) != string(a) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", e, a)
	}
}

// WriteTableFile writes a table to path as CSV or JSONL, by extension.
func WriteTableFile(t *testing.T, path string, table *model.Table) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	content := ToCSV(table)
	if strings.HasSuffix(path, ".jsonl") {
		content = ToJSONL(table)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write table file: %v", err)
	}
	return path
}

// BuildNodeMap indexes nodes by ownId.
func BuildNodeMap(nodes []*model.Node) map[string]*model.Node {
	m := make(map[string]*model.Node, len(nodes))
	for _, n := range nodes {
		m[n.OwnID] = n
	}
	return m
}

// FindNode returns the node with the given ownId, or nil.
func FindNode(nodes []*model.Node, id string) *model.Node {
	for _, n := range nodes {
		if n.OwnID == id {
			return n
		}
	}
	return nil
}

// GetOwnIDs returns the ownIds in slice order.
func GetOwnIDs(nodes []*model.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.OwnID
	}
	return ids
}
