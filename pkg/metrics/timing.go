// Package metrics records how long each slicer stage takes and how many
// items it handled. Stages are process-wide and safe for concurrent use.
//
// Collection is on by default; SLICER_METRICS=0 turns it off.
//
//	func Resolve(nodes []*model.Node, levels int) []*model.Node {
//	    defer metrics.TimerN(metrics.Resolve, len(nodes))()
//	    ...
//	}
package metrics

import (
	"os"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("SLICER_METRICS") != "0")
}

// Enabled reports whether stages record anything.
func Enabled() bool {
	return enabled.Load()
}

// SetEnabled turns collection on or off.
func SetEnabled(e bool) {
	enabled.Store(e)
}

// Stage accumulates timings for one pipeline stage.
type Stage struct {
	name  string
	runs  atomic.Int64
	items atomic.Int64
	total atomic.Int64 // ns
	max   atomic.Int64 // ns
	last  atomic.Int64 // ns
}

func newStage(name string) *Stage {
	return &Stage{name: name}
}

// Name returns the stage name used in reports.
func (s *Stage) Name() string {
	return s.name
}

// Runs returns how many times the stage was recorded.
func (s *Stage) Runs() int64 {
	return s.runs.Load()
}

// Record adds one run that took d and handled items.
func (s *Stage) Record(d time.Duration, items int) {
	if !enabled.Load() {
		return
	}
	ns := d.Nanoseconds()
	s.runs.Add(1)
	s.items.Add(int64(items))
	s.total.Add(ns)
	s.last.Store(ns)
	for {
		old := s.max.Load()
		if ns <= old || s.max.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Reset forgets every recorded run.
func (s *Stage) Reset() {
	s.runs.Store(0)
	s.items.Store(0)
	s.total.Store(0)
	s.max.Store(0)
	s.last.Store(0)
}

// TimingStats is a snapshot of a stage, in milliseconds.
type TimingStats struct {
	Name      string  `json:"name"`
	Runs      int64   `json:"runs"`
	Items     int64   `json:"items"`
	TotalMs   float64 `json:"total_ms"`
	AvgMs     float64 `json:"avg_ms"`
	MaxMs     float64 `json:"max_ms"`
	LastMs    float64 `json:"last_ms"`
	NsPerItem float64 `json:"ns_per_item,omitempty"`
}

// Stats returns a snapshot of s.
func (s *Stage) Stats() TimingStats {
	runs := s.runs.Load()
	items := s.items.Load()
	total := s.total.Load()

	st := TimingStats{
		Name:    s.name,
		Runs:    runs,
		Items:   items,
		TotalMs: ms(total),
		MaxMs:   ms(s.max.Load()),
		LastMs:  ms(s.last.Load()),
	}
	if runs > 0 {
		st.AvgMs = ms(total / runs)
	}
	if items > 0 {
		st.NsPerItem = float64(total) / float64(items)
	}
	return st
}

func ms(ns int64) float64 {
	return float64(ns) / 1e6
}

// Timer returns a func that records the time since Timer was called.
//
//	defer metrics.Timer(metrics.Render)()
func Timer(s *Stage) func() {
	return TimerN(s, 0)
}

// TimerN is Timer for a run that handled n items.
func TimerN(s *Stage, n int) func() {
	if s == nil || !enabled.Load() {
		return func() {}
	}
	start := time.Now()
	return func() {
		s.Record(time.Since(start), n)
	}
}

// Pipeline stages.
var (
	Convert   = newStage("convert")
	Resolve   = newStage("resolve")
	Search    = newStage("search")
	Render    = newStage("render")
	TableLoad = newStage("table_load")
	StateSave = newStage("state_save")
)

// Stages returns every stage in pipeline order.
func Stages() []*Stage {
	return []*Stage{Convert, Resolve, Search, Render, TableLoad, StateSave}
}

// ResetAll resets every stage.
func ResetAll() {
	for _, s := range Stages() {
		s.Reset()
	}
}

// AllTimingStats returns snapshots of the stages that have run.
func AllTimingStats() []TimingStats {
	var out []TimingStats
	for _, s := range Stages() {
		if s.Runs() > 0 {
			out = append(out, s.Stats())
		}
	}
	return out
}
