package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/hierslicer/internal/datasource"
	"github.com/vanderheijden86/hierslicer/pkg/config"
	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
	"github.com/vanderheijden86/hierslicer/pkg/store"
)

// robotRun is one non-interactive pass of the slicer: apply the requested
// actions through a store-backed host, then report.
type robotRun struct {
	Table     *model.Table
	Source    datasource.DataSource
	Store     *store.Store
	Options   slicer.Options
	Select    []string
	Search    string
	ExpandAll bool
}

// execute runs the actions in order: expand, select, search. Each action is
// followed by an update, as a host would do.
func (r robotRun) execute() (*slicer.Visual, *store.Host) {
	host := store.NewHost(r.Store)
	v := slicer.NewVisual(host, r.Options)
	v.Update(r.Table)

	if r.ExpandAll {
		v.ExpandAll()
		v.Update(nil)
	}
	for _, id := range r.Select {
		v.ToggleSelect(id)
		v.Update(nil)
	}
	if r.Search != "" {
		v.SetSearch(r.Search)
		v.Update(nil)
	}
	return v, host
}

type robotNodesOutput struct {
	GeneratedAt string                `json:"generated_at"`
	Source      string                `json:"source"`
	Type        datasource.SourceType `json:"type"`
	Columns     []model.Column        `json:"columns"`
	Rows        int                   `json:"rows"`
	Levels      int                   `json:"levels"`
	TotalNodes  int                   `json:"total_nodes"`
	Searching   bool                  `json:"searching"`
	Nodes       []*model.Node         `json:"nodes"`
	Filter      string                `json:"filter,omitempty"`
}

type robotFilterOutput struct {
	GeneratedAt string            `json:"generated_at"`
	Source      string            `json:"source"`
	Selected    []string          `json:"selected"`
	Filter      string            `json:"filter"`
	Expr        *model.FilterExpr `json:"expr"`
}

type robotSource struct {
	Name    string                `json:"name"`
	Path    string                `json:"path"`
	Type    datasource.SourceType `json:"type,omitempty"`
	Columns []string              `json:"columns,omitempty"`
	Rows    int                   `json:"rows"`
	Error   string                `json:"error,omitempty"`
}

type robotSourcesOutput struct {
	GeneratedAt string        `json:"generated_at"`
	Sources     []robotSource `json:"sources"`
}

type robotMetricsOutput struct {
	GeneratedAt string                `json:"generated_at"`
	Timings     []metrics.TimingStats `json:"timings"`
}

func generatedAt() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func writeRobotJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nodesOutput(r robotRun, v *slicer.Visual) robotNodesOutput {
	nodes := v.VisibleNodes()
	if nodes == nil {
		nodes = []*model.Node{}
	}
	return robotNodesOutput{
		GeneratedAt: generatedAt(),
		Source:      r.Source.Path,
		Type:        r.Source.Type,
		Columns:     r.Table.Columns,
		Rows:        len(r.Table.Rows),
		Levels:      v.Levels(),
		TotalNodes:  len(v.Nodes()),
		Searching:   v.Searching(),
		Nodes:       nodes,
		Filter:      v.Filter().String(),
	}
}

func filterOutput(r robotRun, v *slicer.Visual) robotFilterOutput {
	expr := v.Filter()
	return robotFilterOutput{
		GeneratedAt: generatedAt(),
		Source:      r.Source.Path,
		Selected:    slicer.ParseIDSet(v.State().Selected).Sorted(),
		Filter:      expr.String(),
		Expr:        expr,
	}
}

func sourcesOutput(results []datasource.LoadResult) robotSourcesOutput {
	out := robotSourcesOutput{GeneratedAt: generatedAt(), Sources: make([]robotSource, 0, len(results))}
	for _, res := range results {
		s := robotSource{Name: res.Name, Path: res.Source.Path, Type: res.Source.Type}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		if res.Table != nil {
			s.Rows = len(res.Table.Rows)
			for _, c := range res.Table.Columns {
				s.Columns = append(s.Columns, c.Name)
			}
		}
		out.Sources = append(out.Sources, s)
	}
	return out
}

func metricsOutput() robotMetricsOutput {
	timings := metrics.AllTimingStats()
	if timings == nil {
		timings = []metrics.TimingStats{}
	}
	return robotMetricsOutput{GeneratedAt: generatedAt(), Timings: timings}
}

// requestsFromConfig turns the configured sources into load requests.
func requestsFromConfig(cfg config.Config) []datasource.Request {
	reqs := make([]datasource.Request, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		reqs = append(reqs, datasource.Request{Name: s.Name, Path: s.Path, Query: s.Query, Columns: s.Columns})
	}
	return reqs
}

// parseSelectFlag splits --select. ownIds contain commas, so ids are
// separated like the persisted selection.
func parseSelectFlag(s string) []string {
	var ids []string
	for _, id := range strings.Split(s, slicer.SetDelimiter) {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// resolveSource picks the data source from --data, --source or the first
// configured source, in that order.
func resolveSource(cfg config.Config, dataFlag, sourceFlag, queryFlag string) (config.Source, error) {
	switch {
	case dataFlag != "":
		return config.Source{Name: dataFlag, Path: dataFlag, Query: queryFlag}, nil
	case sourceFlag != "":
		src := cfg.FindSource(sourceFlag)
		if src == nil {
			return config.Source{}, fmt.Errorf("unknown source %q", sourceFlag)
		}
		out := *src
		if queryFlag != "" {
			out.Query = queryFlag
		}
		return out, nil
	case len(cfg.Sources) > 0:
		return cfg.Sources[0], nil
	}
	return config.Source{}, fmt.Errorf("no data source: pass --data or configure sources in %s", config.ConfigPath())
}

// openStore opens the state file for a source. "none" keeps the state in
// memory only.
func openStore(stateFlag, stateDir, sourcePath string) (*store.Store, error) {
	switch stateFlag {
	case "none":
		return store.NewMemory(slicer.PersistedState{}), nil
	case "":
		if stateDir == "" {
			return store.NewMemory(slicer.PersistedState{}), nil
		}
		return store.Open(store.StatePath(stateDir, sourcePath))
	}
	return store.Open(stateFlag)
}
