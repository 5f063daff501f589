// Package testutil provides hierarchy table fixtures and node assertions.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// GeneratorConfig controls table generation.
type GeneratorConfig struct {
	Seed      int64   // Random seed for determinism (0 = use current time)
	NullRate  float64 // Probability that a non-root cell is null
	ShortRate float64 // Probability that a row is cut short (ragged)
	Prefix    string  // Prefix for generated values (default: "v")
}

// DefaultConfig returns a config suitable for most tests: no nulls, no
// ragged rows.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:   42, // Deterministic
		Prefix: "v",
	}
}

// Generator creates hierarchy tables with various shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "v"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// TextColumns returns depth text columns named L0..L{depth-1}.
func TextColumns(depth int) []model.Column {
	cols := make([]model.Column, depth)
	for i := range cols {
		cols[i] = model.Column{Name: fmt.Sprintf("L%d", i), Type: model.TypeText}
	}
	return cols
}

// Balanced returns a full tree of the given depth where every node has
// breadth children: breadth^depth rows.
func (g *Generator) Balanced(depth, breadth int) *model.Table {
	t := &model.Table{Columns: TextColumns(depth)}
	if depth <= 0 || breadth <= 0 {
		return t
	}
	path := make([]any, depth)
	var walk func(level int)
	walk = func(level int) {
		if level == depth {
			row := make([]any, depth)
			copy(row, path)
			t.Rows = append(t.Rows, row)
			return
		}
		for i := 0; i < breadth; i++ {
			path[level] = fmt.Sprintf("%s%d-%d", g.cfg.Prefix, level, i)
			walk(level + 1)
		}
	}
	walk(0)
	return g.perturb(t)
}

// Random returns rows rows with values drawn from a pool of width distinct
// values per level, so paths share prefixes and repeat.
func (g *Generator) Random(rows, depth, width int) *model.Table {
	t := &model.Table{Columns: TextColumns(depth)}
	if depth <= 0 || width <= 0 {
		return t
	}
	for r := 0; r < rows; r++ {
		row := make([]any, depth)
		for c := range row {
			row[c] = fmt.Sprintf("%s%d-%d", g.cfg.Prefix, c, g.rng.Intn(width))
		}
		t.Rows = append(t.Rows, row)
	}
	return g.perturb(t)
}

// perturb applies NullRate and ShortRate. The first row is never cut so the
// table depth stays intact.
func (g *Generator) perturb(t *model.Table) *model.Table {
	for i, row := range t.Rows {
		if g.cfg.NullRate > 0 {
			for c := 1; c < len(row); c++ {
				if g.rng.Float64() < g.cfg.NullRate {
					row[c] = nil
				}
			}
		}
		if i > 0 && g.cfg.ShortRate > 0 && len(row) > 1 && g.rng.Float64() < g.cfg.ShortRate {
			t.Rows[i] = row[:1+g.rng.Intn(len(row)-1)]
		}
	}
	return t
}

// Scenario returns the two-level table used throughout the tests: roots
// "", "1" and "2", two children each, one of them an empty string.
func Scenario() *model.Table {
	return &model.Table{
		Columns: []model.Column{
			{Name: "A", Type: model.TypeText},
			{Name: "B", Type: model.TypeText},
		},
		Rows: [][]any{
			{"", "2"},
			{"", "6"},
			{"1", "1"},
			{"1", "5"},
			{"2", ""},
			{"2", "3"},
		},
	}
}

// Regions returns a small three-level geography table.
func Regions() *model.Table {
	return &model.Table{
		Columns: []model.Column{
			{Name: "Region", Type: model.TypeText},
			{Name: "State", Type: model.TypeText},
			{Name: "City", Type: model.TypeText},
		},
		Rows: [][]any{
			{"East", "MA", "Boston"},
			{"East", "MA", "Cambridge"},
			{"East", "NY", "Albany"},
			{"West", "CA", "Fresno"},
			{"West", "CA", "Boston Valley"},
			{"West", "WA", nil},
		},
	}
}

// ToCSV renders a table as CSV with a header row. Null cells are empty.
// Values must not contain commas or quotes.
func ToCSV(t *model.Table) string {
	var sb strings.Builder
	for i, c := range t.Columns {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(c.Name)
		if c.Type != "" && c.Type != model.TypeText {
			sb.WriteString(":" + string(c.Type))
		}
	}
	sb.WriteByte('\n')
	for _, row := range t.Rows {
		for i, cell := range row {
			if i > 0 {
				sb.WriteByte(',')
			}
			if cell != nil {
				sb.WriteString(fmt.Sprint(cell))
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToJSONL renders a table as JSONL: a header line, then one array per row.
func ToJSONL(t *model.Table) string {
	var sb strings.Builder
	header, _ := json.Marshal(map[string]any{"columns": t.Columns})
	sb.Write(header)
	sb.WriteByte('\n')
	for _, row := range t.Rows {
		data, err := json.Marshal(row)
		if err != nil {
			continue
		}
		sb.Write(data)
		sb.WriteByte('\n')
	}
	return sb.String()
}
