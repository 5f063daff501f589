package ui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/hierslicer/internal/datasource"
	"github.com/vanderheijden86/hierslicer/pkg/config"
	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/testutil"
)

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(Model)
	}
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func newRegionModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(Options{
		Config: config.DefaultConfig(),
		Table:  testutil.Regions(),
		Source: datasource.DataSource{Path: "regions.csv"},
	})
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func TestModelInitialRender(t *testing.T) {
	m := newRegionModel(t)
	if m.tree.NodeCount() != 2 {
		t.Fatalf("expected 2 roots, got %d", m.tree.NodeCount())
	}
	if m.Init() != nil {
		t.Error("no watcher, so Init should return nil")
	}
	view := stripANSI(m.View())
	for _, want := range []string{"East", "West", "6 rows", "no filter"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestModelExpandCollapse(t *testing.T) {
	m := newRegionModel(t)

	m = press(t, m, "enter")
	if m.tree.NodeCount() != 4 {
		t.Fatalf("expected East expanded to 4 rows, got %d", m.tree.NodeCount())
	}
	if m.tree.GetSelectedID() != "East@0" {
		t.Errorf("cursor moved to %q", m.tree.GetSelectedID())
	}

	m = press(t, m, "j", "j", "j", "l")
	if m.tree.NodeCount() != 6 {
		t.Fatalf("expected West expanded, got %d rows", m.tree.NodeCount())
	}
	m = press(t, m, "l")
	if m.tree.GetSelectedID() != "West@0,CA@1" {
		t.Errorf("l on an expanded node should step into it, got %q", m.tree.GetSelectedID())
	}
	m = press(t, m, "h")
	if m.tree.GetSelectedID() != "West@0" {
		t.Errorf("h on a collapsed node should go to its parent, got %q", m.tree.GetSelectedID())
	}
	m = press(t, m, "h")
	if m.tree.NodeCount() != 4 {
		t.Errorf("h on an expanded node should collapse it, got %d rows", m.tree.NodeCount())
	}

	m = press(t, m, "E")
	if m.tree.NodeCount() != 12 {
		t.Errorf("E should expand everything, got %d rows", m.tree.NodeCount())
	}
	m = press(t, m, "C")
	if m.tree.NodeCount() != 2 {
		t.Errorf("C should collapse everything, got %d rows", m.tree.NodeCount())
	}
}

func TestModelSelectAndClear(t *testing.T) {
	m := newRegionModel(t)

	m = press(t, m, "space")
	if got := m.Filter().String(); got != "Region = 'East'" {
		t.Fatalf("filter = %q", got)
	}
	if !strings.Contains(stripANSI(m.View()), "filter: Region = 'East'") {
		t.Errorf("footer should show the filter:\n%s", stripANSI(m.View()))
	}
	if expr, ok := m.host.Filter(); !ok || expr.String() != "Region = 'East'" {
		t.Errorf("host filter = %v", expr)
	}

	m = press(t, m, "x")
	if m.Filter() != nil {
		t.Errorf("expected cleared filter, got %s", m.Filter())
	}
	if m.statusMsg != "Selection cleared" {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestModelKeypressClearsStatus(t *testing.T) {
	m := newRegionModel(t)

	m = press(t, m, "x")
	if !strings.Contains(stripANSI(m.View()), "Selection cleared") {
		t.Fatalf("expected the status in the footer:\n%s", stripANSI(m.View()))
	}

	m = press(t, m, "space", "j", "k")
	if m.statusMsg != "" {
		t.Errorf("status should be cleared by the next key, got %q", m.statusMsg)
	}
	view := stripANSI(m.View())
	if !strings.Contains(view, "filter: Region = 'East'") || strings.Contains(view, "Selection cleared") {
		t.Errorf("footer should show the filter again:\n%s", view)
	}
}

func TestModelCopyFilter(t *testing.T) {
	var copied string
	orig := clipboardWrite
	clipboardWrite = func(s string) error {
		copied = s
		return nil
	}
	defer func() { clipboardWrite = orig }()

	m := newRegionModel(t)
	m = press(t, m, "y")
	if !m.statusIsError || copied != "" {
		t.Errorf("copy without selection: status %q copied %q", m.statusMsg, copied)
	}

	m = press(t, m, "j", "space", "y")
	if copied != "Region = 'West'" {
		t.Errorf("copied %q", copied)
	}

	clipboardWrite = func(string) error { return errors.New("no clipboard") }
	m = press(t, m, "y")
	if !m.statusIsError || !strings.Contains(m.statusMsg, "no clipboard") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestModelSearch(t *testing.T) {
	m := newRegionModel(t)

	m = press(t, m, "/", "b", "o")
	if !m.searching || m.visual.Searching() {
		t.Fatalf("two characters should not narrow yet (searching=%v)", m.visual.Searching())
	}
	if !strings.Contains(stripANSI(m.View()), "type 3+ characters") {
		t.Error("search bar should explain the threshold")
	}

	m = press(t, m, "s")
	if !m.visual.Searching() || m.tree.NodeCount() != 6 {
		t.Fatalf("expected 6 rows for 'bos', got %d", m.tree.NodeCount())
	}

	m = press(t, m, "enter")
	if m.searching || !m.visual.Searching() {
		t.Error("enter should keep the search and leave the input")
	}
	// Keys reach the tree again.
	m = press(t, m, "j")
	if m.tree.GetSelectedID() == "East@0" {
		t.Error("j should move the cursor after leaving the input")
	}

	m = press(t, m, "esc")
	if m.visual.Searching() || m.visual.State().SearchText != "" {
		t.Error("esc should clear the search")
	}
	if m.tree.NodeCount() != 2 {
		t.Errorf("expected roots after clearing, got %d", m.tree.NodeCount())
	}
}

func TestModelSearchEscClears(t *testing.T) {
	m := newRegionModel(t)
	m = press(t, m, "/", "b", "o", "s", "esc")
	if m.searching || m.visual.State().SearchText != "" {
		t.Error("esc inside the input should drop the search")
	}
}

func TestModelHideBlankLeaves(t *testing.T) {
	m := newRegionModel(t)
	m = press(t, m, "b")
	if !m.visual.State().HideEmptyLeaves {
		t.Fatal("expected blank leaves hidden")
	}
	if m.visual.Node("West@0,WA@1,(blank)@2") != nil {
		t.Error("blank leaf should be gone")
	}
	m = press(t, m, "b")
	if m.visual.Node("West@0,WA@1,(blank)@2") == nil {
		t.Error("blank leaf should be back")
	}
}

func TestModelHideBlankLeavesFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Slicer.HideEmptyLeaves = true
	m := NewModel(Options{Config: cfg, Table: testutil.Regions()})
	if m.visual.Node("West@0,WA@1,(blank)@2") != nil {
		t.Error("configured default should hide blank leaves")
	}
}

func TestModelHelpOverlay(t *testing.T) {
	m := newRegionModel(t)
	m = press(t, m, "?")
	if !strings.Contains(stripANSI(m.View()), "Quick Reference") {
		t.Fatal("expected help overlay")
	}
	// Keys do not reach the tree while help is open.
	m = press(t, m, "j", "esc")
	if m.showHelp || m.tree.GetSelectedID() != "East@0" {
		t.Errorf("help open=%v cursor=%q", m.showHelp, m.tree.GetSelectedID())
	}
}

func TestModelQuit(t *testing.T) {
	m := newRegionModel(t)
	m, cmd := send(t, m, keyMsg("q"))
	if cmd == nil || !m.quitting || m.View() != "" {
		t.Error("q should quit")
	}
}

func TestModelFavoriteSwitch(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTableFile(t, filepath.Join(dir, "scenario.csv"), testutil.Scenario())

	cfg := config.DefaultConfig()
	cfg.Sources = []config.Source{{Name: "scenario", Path: path}}
	cfg.SetFavorite(1, "scenario")

	m := NewModel(Options{Config: cfg, Table: testutil.Regions(), StateDir: filepath.Join(dir, "state")})
	m = press(t, m, "space")

	m, cmd := send(t, m, keyMsg("1"))
	if cmd == nil {
		t.Fatal("expected a switch command")
	}
	switchMsg, ok := cmd().(SwitchSourceMsg)
	if !ok || switchMsg.Source.Name != "scenario" {
		t.Fatalf("unexpected message %#v", switchMsg)
	}

	m, cmd = send(t, m, switchMsg)
	loaded := cmd().(TableLoadedMsg)
	if loaded.Err != nil {
		t.Fatalf("load: %v", loaded.Err)
	}
	m, _ = send(t, m, loaded)

	if m.Filter() != nil {
		t.Error("the new source has its own, empty state")
	}
	if m.tree.NodeCount() != 3 {
		t.Errorf("expected 3 roots of the scenario table, got %d", m.tree.NodeCount())
	}
	if !strings.Contains(m.statusMsg, "Switched to scenario (6 rows)") {
		t.Errorf("status = %q", m.statusMsg)
	}
}

func TestModelFavoriteMissing(t *testing.T) {
	m := newRegionModel(t)
	m, cmd := send(t, m, keyMsg("3"))
	if cmd != nil || !m.statusIsError {
		t.Errorf("expected an error status, got %q", m.statusMsg)
	}
}

func TestModelReloadKeepsSelection(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTableFile(t, filepath.Join(dir, "regions.csv"), testutil.Regions())
	src, err := datasource.DetectSource(path)
	if err != nil {
		t.Fatal(err)
	}
	table, err := datasource.LoadFromSource(t.Context(), src)
	if err != nil {
		t.Fatal(err)
	}

	m := NewModel(Options{Config: config.DefaultConfig(), Table: table, Source: src})
	m = press(t, m, "space")

	grown := testutil.Regions()
	grown.Rows = append(grown.Rows, []any{"East", "NY", "Buffalo"})
	testutil.WriteTableFile(t, path, grown)

	m, cmd := send(t, m, FileChangedMsg{})
	if cmd == nil {
		t.Fatal("expected a reload command")
	}
	m, _ = send(t, m, cmd())

	if m.statusMsg != "Reloaded: +1 rows" {
		t.Errorf("status = %q", m.statusMsg)
	}
	if n := m.visual.Node("East@0,NY@1,Albany@2"); n == nil || !n.Selected {
		t.Error("selection should survive the reload")
	}
	// The new row was never selected, so its branch turns partial.
	if n := m.visual.Node("East@0,NY@1,Buffalo@2"); n == nil || n.Selected {
		t.Error("new row should appear unselected")
	}
	if !m.visual.Node("East@0,NY@1").PartialSelected {
		t.Error("NY should be partial after the reload")
	}
}

func TestModelReloadError(t *testing.T) {
	m := newRegionModel(t)
	m, cmd := send(t, m, TableLoadedMsg{Reload: true, Err: errors.New("boom")})
	if cmd != nil {
		t.Error("no watcher to re-arm")
	}
	if !m.statusIsError || m.statusMsg != "Reload error: boom" {
		t.Errorf("status = %q", m.statusMsg)
	}
	if m.tree.NodeCount() != 2 {
		t.Error("a failed reload keeps the old table")
	}
}

func TestModelWatchesSource(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteTableFile(t, filepath.Join(dir, "regions.csv"), testutil.Regions())
	src, err := datasource.DetectSource(path)
	if err != nil {
		t.Fatal(err)
	}

	m := NewModel(Options{Config: config.DefaultConfig(), Table: &model.Table{}, Source: src, Watch: true})
	if m.watcher == nil {
		t.Fatalf("expected a watcher, status %q", m.statusMsg)
	}
	defer m.watcher.Stop()
	if m.Init() == nil {
		t.Error("Init should wait for file changes")
	}
	if _, err := os.Stat(m.watcher.Path()); err != nil {
		t.Errorf("watcher path: %v", err)
	}
}

func TestModelWatchError(t *testing.T) {
	m := newRegionModel(t)
	m, cmd := send(t, m, WatchErrorMsg{Err: errors.New("watched file was removed")})
	if cmd != nil {
		t.Error("no watcher to re-arm")
	}
	if !m.statusIsError || m.statusMsg != "Watch: watched file was removed" {
		t.Errorf("status = %q", m.statusMsg)
	}
	if m.tree.NodeCount() != 2 {
		t.Error("the table stays loaded")
	}
}
