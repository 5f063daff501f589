// Package store keeps the slicer's persisted properties (selection,
// expansion, search text, options) in a small JSON file, one per data
// source.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "properties": {
//	    "general": {"selected": "East@0|East@0,Boston@1", "expanded": "East@0"},
//	    "search":  {"text": "bos", "selfFilterEnabled": true},
//	    "options": {"hideEmptyLeaves": true}
//	  }
//	}
//
// Missing or corrupted files fall back to an empty state.
package store

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/hierslicer/pkg/metrics"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
)

// StateVersion is the current schema version of the state file.
const StateVersion = 1

// File is the on-disk shape of the persisted properties.
type File struct {
	Version    int                       `json:"version"`
	Properties map[string]map[string]any `json:"properties"`
}

// Store holds the persisted properties of one slicer. The zero path keeps
// everything in memory.
type Store struct {
	mu    sync.RWMutex
	path  string
	props map[string]map[string]any
}

// StatePath returns the state file for a data source inside dir. The name is
// derived from the source path so two sources never share a file.
func StatePath(dir, source string) string {
	sum := sha1.Sum([]byte(source))
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "slicer"
	}
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", base, hex.EncodeToString(sum[:4])))
}

// Open loads the store at path. A missing file is an empty store; a file
// that cannot be parsed is logged and ignored.
func Open(path string) (*Store, error) {
	s := &Store{path: path, props: make(map[string]map[string]any)}
	if path == "" {
		return s, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading state: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		log.Printf("warning: invalid state file %s, using defaults: %v", path, err)
		return s, nil
	}
	if f.Version > StateVersion {
		log.Printf("warning: state file %s has newer version %d, using defaults", path, f.Version)
		return s, nil
	}
	for obj, props := range f.Properties {
		if props != nil {
			s.props[obj] = props
		}
	}
	return s, nil
}

// NewMemory returns a store that is never written to disk, seeded with state.
func NewMemory(state slicer.PersistedState) *Store {
	s := &Store{props: make(map[string]map[string]any)}
	s.setLocked(fromState(state))
	return s
}

// Path returns the backing file, or "" for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// State returns the properties in the form the slicer reads.
func (s *Store) State() slicer.PersistedState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st slicer.PersistedState
	st.Selected = s.stringProp(slicer.ObjectGeneral, slicer.PropSelected)
	st.Expanded = s.stringProp(slicer.ObjectGeneral, slicer.PropExpanded)
	st.SearchText = s.stringProp(slicer.ObjectSearch, slicer.PropSearchText)
	st.SelfFilterEnabled = s.boolProp(slicer.ObjectSearch, slicer.PropSelfFilter)
	st.HideEmptyLeaves = s.boolProp(slicer.ObjectOptions, slicer.PropHideEmptyLeaves)
	return st
}

// Has reports whether a property has been written, even with a zero value.
func (s *Store) Has(obj, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.props[obj][name]
	return ok
}

// Default sets a property only if it has never been written. It does not
// save; the value reaches disk with the next Apply.
func (s *Store) Default(obj, name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.props[obj][name]; ok {
		return
	}
	s.setLocked([]slicer.Property{{Object: obj, Name: name, Value: v}})
}

func (s *Store) stringProp(obj, name string) string {
	v, _ := s.props[obj][name].(string)
	return v
}

func (s *Store) boolProp(obj, name string) bool {
	v, _ := s.props[obj][name].(bool)
	return v
}

// Apply merges and removes properties, then writes the file. Write errors
// are returned; the in-memory state is updated either way.
func (s *Store) Apply(p slicer.Patch) error {
	if p.IsEmpty() {
		return nil
	}
	s.mu.Lock()
	s.setLocked(p.Merge)
	for _, prop := range p.Remove {
		if props, ok := s.props[prop.Object]; ok {
			delete(props, prop.Name)
			if len(props) == 0 {
				delete(s.props, prop.Object)
			}
		}
	}
	s.mu.Unlock()

	return s.Save()
}

func (s *Store) setLocked(props []slicer.Property) {
	for _, prop := range props {
		obj, ok := s.props[prop.Object]
		if !ok {
			obj = make(map[string]any)
			s.props[prop.Object] = obj
		}
		obj[prop.Name] = prop.Value
	}
}

// Save writes the current properties. It writes to a temporary file and
// renames it so a crash never leaves a truncated state file.
func (s *Store) Save() error {
	if s.path == "" {
		return nil
	}
	defer metrics.Timer(metrics.StateSave)()

	s.mu.RLock()
	data, err := json.MarshalIndent(File{Version: StateVersion, Properties: s.props}, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating state directory %s: %w", dir, err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replacing state: %w", err)
	}
	return nil
}

func fromState(st slicer.PersistedState) []slicer.Property {
	var props []slicer.Property
	add := func(obj, name string, v any, set bool) {
		if set {
			props = append(props, slicer.Property{Object: obj, Name: name, Value: v})
		}
	}
	add(slicer.ObjectGeneral, slicer.PropSelected, st.Selected, st.Selected != "")
	add(slicer.ObjectGeneral, slicer.PropExpanded, st.Expanded, st.Expanded != "")
	add(slicer.ObjectSearch, slicer.PropSearchText, st.SearchText, st.SearchText != "")
	add(slicer.ObjectSearch, slicer.PropSelfFilter, true, st.SelfFilterEnabled)
	add(slicer.ObjectOptions, slicer.PropHideEmptyLeaves, true, st.HideEmptyLeaves)
	return props
}
