package store

import (
	"sync"

	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
)

// Host implements slicer.Host on top of a Store. It keeps the last filter
// and the last rendered nodes for whoever draws them.
type Host struct {
	mu       sync.Mutex
	store    *Store
	filter   *model.FilterExpr
	filtered bool
	nodes    []*model.Node
	err      error
}

// NewHost returns a host that persists through st.
func NewHost(st *Store) *Host {
	return &Host{store: st}
}

// Store returns the backing store.
func (h *Host) Store() *Store {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.store
}

// SetStore switches to another store, e.g. after changing the data source.
// The last filter and nodes are dropped.
func (h *Host) SetStore(st *Store) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.store = st
	h.filter = nil
	h.filtered = false
	h.nodes = nil
}

func (h *Host) ReadPersistedState() slicer.PersistedState {
	return h.Store().State()
}

// WritePersistedState applies the patch. A failed save is kept for Err; the
// in-memory state still changes.
func (h *Host) WritePersistedState(p slicer.Patch) {
	if err := h.Store().Apply(p); err != nil {
		debug.Log("store: write failed: %v", err)
		h.mu.Lock()
		h.err = err
		h.mu.Unlock()
	}
}

func (h *Host) ApplyFilter(expr *model.FilterExpr) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.filter = expr
	h.filtered = true
}

func (h *Host) RenderNodes(nodes []*model.Node) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nodes = nodes
}

// Filter returns the last applied filter and whether one was applied at
// all. A nil filter with ok set means the filter was cleared.
func (h *Host) Filter() (expr *model.FilterExpr, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.filter, h.filtered
}

// Nodes returns the nodes of the last render.
func (h *Host) Nodes() []*model.Node {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.nodes
}

// Err returns and clears the last write error.
func (h *Host) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	err := h.err
	h.err = nil
	return err
}
