package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/hierslicer/internal/datasource"
	"github.com/vanderheijden86/hierslicer/pkg/config"
	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
	"github.com/vanderheijden86/hierslicer/pkg/store"
	"github.com/vanderheijden86/hierslicer/pkg/testutil"
)

func regionRun(t *testing.T) robotRun {
	t.Helper()
	return robotRun{
		Table:   testutil.Regions(),
		Source:  datasource.DataSource{Path: "/data/regions.csv", Type: datasource.SourceTypeCSV},
		Store:   store.NewMemory(slicer.PersistedState{}),
		Options: slicer.DefaultOptions(),
	}
}

func TestRobotNodesDefault(t *testing.T) {
	run := regionRun(t)
	v, _ := run.execute()

	var buf bytes.Buffer
	if err := writeRobotJSON(&buf, nodesOutput(run, v)); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out robotNodesOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if out.Rows != 6 || out.TotalNodes != 12 || out.Levels != 2 {
		t.Errorf("rows=%d total=%d levels=%d", out.Rows, out.TotalNodes, out.Levels)
	}
	if got := testutil.GetOwnIDs(out.Nodes); !reflect.DeepEqual(got, []string{"East@0", "West@0"}) {
		t.Errorf("nodes = %q", got)
	}
	if out.Filter != "" {
		t.Errorf("unexpected filter %q", out.Filter)
	}
	if !strings.Contains(buf.String(), `"own_id": "East@0"`) {
		t.Errorf("expected snake_case node fields:\n%s", buf.String())
	}
}

func TestRobotActions(t *testing.T) {
	run := regionRun(t)
	run.ExpandAll = true
	run.Select = parseSelectFlag("East@0,MA@1 | West@0,WA@1")
	v, _ := run.execute()

	nodes := nodesOutput(run, v)
	if len(nodes.Nodes) != 12 {
		t.Errorf("expand-all should show every node, got %d", len(nodes.Nodes))
	}

	out := filterOutput(run, v)
	want := "(Region = 'East' AND State = 'MA') OR (Region = 'West' AND State = 'WA')"
	if out.Filter != want {
		t.Errorf("filter = %q, want %q", out.Filter, want)
	}
	testutil.AssertJSONEqual(t, slicer.Or(
		slicer.And(slicer.Equals("Region", "East"), slicer.Equals("State", "MA")),
		slicer.And(slicer.Equals("Region", "West"), slicer.Equals("State", "WA")),
	), out.Expr)
	if len(out.Selected) != 7 {
		t.Errorf("selected = %q", out.Selected)
	}
}

func TestRobotSearch(t *testing.T) {
	run := regionRun(t)
	run.Search = "boston"
	v, _ := run.execute()

	out := nodesOutput(run, v)
	if !out.Searching || len(out.Nodes) != 6 {
		t.Errorf("searching=%v nodes=%q", out.Searching, testutil.GetOwnIDs(out.Nodes))
	}
}

func TestRobotEmptyTable(t *testing.T) {
	run := regionRun(t)
	run.Table = &model.Table{}
	v, _ := run.execute()

	var buf bytes.Buffer
	if err := writeRobotJSON(&buf, nodesOutput(run, v)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"nodes": []`) {
		t.Errorf("empty node list should encode as []:\n%s", buf.String())
	}
}

func TestSourcesOutput(t *testing.T) {
	out := sourcesOutput([]datasource.LoadResult{
		{Name: "ok", Source: datasource.DataSource{Path: "/a.csv", Type: datasource.SourceTypeCSV}, Table: testutil.Regions()},
		{Name: "bad", Err: errors.New("boom")},
	})
	if len(out.Sources) != 2 {
		t.Fatalf("sources = %+v", out.Sources)
	}
	if s := out.Sources[0]; s.Rows != 6 || !reflect.DeepEqual(s.Columns, []string{"Region", "State", "City"}) {
		t.Errorf("ok source = %+v", s)
	}
	if s := out.Sources[1]; s.Error != "boom" || s.Rows != 0 {
		t.Errorf("bad source = %+v", s)
	}
}

func TestMetricsOutputNeverNull(t *testing.T) {
	var buf bytes.Buffer
	if err := writeRobotJSON(&buf, metricsOutput()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(buf.String(), `"timings": null`) {
		t.Error("timings should encode as a list")
	}
}

func TestParseSelectFlag(t *testing.T) {
	if got := parseSelectFlag(""); got != nil {
		t.Errorf("empty flag = %q", got)
	}
	got := parseSelectFlag("a@0,b@1|| c@0 ")
	if !reflect.DeepEqual(got, []string{"a@0,b@1", "c@0"}) {
		t.Errorf("got %q", got)
	}
}

func TestResolveSource(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sources = []config.Source{
		{Name: "sales", Path: "/data/sales.db", Query: "SELECT * FROM sales"},
		{Name: "geo", Path: "/data/geo.csv"},
	}

	tests := []struct {
		name           string
		data, src, qry string
		wantPath       string
		wantQuery      string
		wantErr        bool
	}{
		{name: "data flag wins", data: "x.csv", src: "geo", wantPath: "x.csv"},
		{name: "named source", src: "GEO", wantPath: "/data/geo.csv"},
		{name: "query override", src: "sales", qry: "SELECT 1", wantPath: "/data/sales.db", wantQuery: "SELECT 1"},
		{name: "first configured", wantPath: "/data/sales.db", wantQuery: "SELECT * FROM sales"},
		{name: "unknown source", src: "nope", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSource(cfg, tt.data, tt.src, tt.qry)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tt.wantErr {
				return
			}
			if got.Path != tt.wantPath || got.Query != tt.wantQuery {
				t.Errorf("got %+v", got)
			}
		})
	}

	if _, err := resolveSource(config.DefaultConfig(), "", "", ""); err == nil {
		t.Error("expected an error without any source")
	}
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	check := func(name, flag, want string) {
		t.Helper()
		st, err := openStore(flag, dir, "/data/a.csv")
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if got := st.Path(); got != want {
			t.Errorf("%s: path = %q, want %q", name, got, want)
		}
	}

	check("none", "none", "")
	check("default", "", store.StatePath(dir, "/data/a.csv"))
	explicit := filepath.Join(dir, "mine.json")
	check("explicit", explicit, explicit)
}

func TestRequestsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Sources = []config.Source{{Name: "a", Path: "/a.csv", Query: "q"}}
	reqs := requestsFromConfig(cfg)
	if len(reqs) != 1 || reqs[0].Name != "a" || reqs[0].Query != "q" {
		t.Errorf("reqs = %+v", reqs)
	}
}
