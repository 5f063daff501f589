// Package config handles loading and saving slicer configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/hierslicer/config.yaml
//   - State:   ~/.local/state/hierslicer/ (persisted slicer properties)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
)

const appName = "hierslicer"

// Source is a named table source. Query is only used by SQLite sources.
// Columns overrides the column metadata the source detects.
type Source struct {
	Name    string         `yaml:"name"`
	Path    string         `yaml:"path"`
	Query   string         `yaml:"query,omitempty"`
	Columns []model.Column `yaml:"columns,omitempty"`
}

// SlicerConfig holds the slicer settings that are not persisted per visual.
type SlicerConfig struct {
	EmptyLeafLabel     string `yaml:"empty_leaf_label,omitempty"`
	EmptyStringIsBlank bool   `yaml:"empty_string_is_blank,omitempty"`
	HideEmptyLeaves    bool   `yaml:"hide_empty_leaves,omitempty"` // initial value, persisted afterwards
	SingleSelect       bool   `yaml:"single_select,omitempty"`
	SearchMinLength    int    `yaml:"search_min_length,omitempty"`
	Locale             string `yaml:"locale,omitempty"` // BCP 47 tag, e.g. "de-DE"
}

// UIConfig holds terminal UI preferences.
type UIConfig struct {
	ShowLevels bool `yaml:"show_levels,omitempty"` // Show the level index next to each row
	MaxWidth   int  `yaml:"max_width,omitempty"`   // Truncate labels beyond this width (0 = terminal width)
	LiveReload bool `yaml:"live_reload,omitempty"` // Re-read the data file when it changes
}

// Config is the top-level configuration.
type Config struct {
	Sources   []Source       `yaml:"sources,omitempty"`
	Favorites map[int]string `yaml:"favorites,omitempty"` // Number key (1-9) -> source name
	Slicer    SlicerConfig   `yaml:"slicer,omitempty"`
	UI        UIConfig       `yaml:"ui,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Favorites: make(map[int]string),
		Slicer: SlicerConfig{
			EmptyLeafLabel:  slicer.DefaultEmptyLeafLabel,
			SearchMinLength: slicer.DefaultSearchMinLength,
			Locale:          "en",
		},
		UI: UIConfig{
			LiveReload: true,
		},
	}
}

// Options converts the slicer section into slicer options. An unparsable
// locale falls back to English.
func (c SlicerConfig) Options() slicer.Options {
	opts := slicer.DefaultOptions()
	if c.EmptyLeafLabel != "" {
		opts.EmptyLeafLabel = c.EmptyLeafLabel
	}
	opts.EmptyStringIsBlank = c.EmptyStringIsBlank
	opts.SingleSelect = c.SingleSelect
	if c.SearchMinLength > 0 {
		opts.SearchMinLength = c.SearchMinLength
	}
	if c.Locale != "" {
		if tag, err := language.Parse(c.Locale); err == nil {
			opts.Locale = tag
		}
	}
	return opts
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Favorites == nil {
		cfg.Favorites = make(map[int]string)
	}

	for i := range cfg.Sources {
		cfg.Sources[i].Path = expandHome(cfg.Sources[i].Path)
		for j, col := range cfg.Sources[i].Columns {
			if !col.Type.IsValid() {
				cfg.Sources[i].Columns[j].Type = model.ParseColumnType(string(col.Type))
			}
		}
	}

	return cfg, nil
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate reports every problem that makes part of the config unusable.
// The rest of the config still works, so callers usually only warn.
func (c Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("sources[%d]: missing name", i))
		case seen[strings.ToLower(s.Name)]:
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, s.Name))
		}
		seen[strings.ToLower(s.Name)] = true
		if s.Path == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: missing path", i))
		}
	}
	for _, n := range sortedKeys(c.Favorites) {
		switch {
		case n < 1 || n > 9:
			errs = append(errs, fmt.Errorf("favorites: key %d is not 1-9", n))
		case c.FindSource(c.Favorites[n]) == nil:
			errs = append(errs, fmt.Errorf("favorites: key %d names unknown source %q", n, c.Favorites[n]))
		}
	}
	if c.Slicer.SearchMinLength < 0 {
		errs = append(errs, fmt.Errorf("slicer: search_min_length must not be negative"))
	}
	if c.Slicer.Locale != "" {
		if _, err := language.Parse(c.Slicer.Locale); err != nil {
			errs = append(errs, fmt.Errorf("slicer: locale %q: %w", c.Slicer.Locale, err))
		}
	}
	return errors.Join(errs...)
}

func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// FindSource returns the source with the given name, or nil.
func (c Config) FindSource(name string) *Source {
	for i := range c.Sources {
		if strings.EqualFold(c.Sources[i].Name, name) {
			return &c.Sources[i]
		}
	}
	return nil
}

// FavoriteSource returns the source assigned to number key n (1-9), or nil.
func (c Config) FavoriteSource(n int) *Source {
	name, ok := c.Favorites[n]
	if !ok {
		return nil
	}
	return c.FindSource(name)
}

// SetFavorite assigns a source name to a number key (1-9).
func (c *Config) SetFavorite(n int, sourceName string) {
	if c.Favorites == nil {
		c.Favorites = make(map[int]string)
	}
	if sourceName == "" {
		delete(c.Favorites, n)
	} else {
		c.Favorites[n] = sourceName
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
