package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/hierslicer/internal/datasource"
	"github.com/vanderheijden86/hierslicer/pkg/config"
	"github.com/vanderheijden86/hierslicer/pkg/debug"
	"github.com/vanderheijden86/hierslicer/pkg/model"
	"github.com/vanderheijden86/hierslicer/pkg/slicer"
	"github.com/vanderheijden86/hierslicer/pkg/store"
	"github.com/vanderheijden86/hierslicer/pkg/watcher"
)

// loadTimeout bounds a single table (re)load.
const loadTimeout = 30 * time.Second

// footerLines is the number of rows below the tree.
const footerLines = 2

// clipboardWrite is swapped out in tests.
var clipboardWrite = clipboard.WriteAll

// FileChangedMsg is sent when the data source changes on disk
type FileChangedMsg struct{}

// WatchErrorMsg reports that the data source was removed or could not be
// watched. Watching continues.
type WatchErrorMsg struct {
	Err error
}

// TableLoadedMsg carries the result of a background load. Store is set
// when the load switched to another source.
type TableLoadedMsg struct {
	Table  *model.Table
	Source datasource.DataSource
	Store  *store.Store
	Name   string
	Reload bool
	Err    error
}

// SwitchSourceMsg asks the model to load another configured source.
type SwitchSourceMsg struct {
	Source config.Source
}

// WatchFileCmd waits for the next watch event. It returns nil once the
// watcher is stopped.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-w.Events()
		if !ok {
			return nil
		}
		if ev.Kind == watcher.Changed {
			return FileChangedMsg{}
		}
		return WatchErrorMsg{Err: ev.Err}
	}
}

// ReloadTableCmd re-reads source in the background.
func ReloadTableCmd(source datasource.DataSource) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		table, err := datasource.LoadFromSource(ctx, source)
		return TableLoadedMsg{Table: table, Source: source, Reload: true, Err: err}
	}
}

// LoadSourceCmd loads a configured source together with its state file.
func LoadSourceCmd(src config.Source, stateDir string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		table, ds, err := datasource.Load(ctx, src.Path, src.Query, src.Columns)
		if err != nil {
			return TableLoadedMsg{Name: src.Name, Err: err}
		}
		st, err := store.Open(store.StatePath(stateDir, ds.Path))
		if err != nil {
			return TableLoadedMsg{Name: src.Name, Err: err}
		}
		return TableLoadedMsg{Table: table, Source: ds, Store: st, Name: src.Name}
	}
}

// Options configure NewModel.
type Options struct {
	Config config.Config
	Source datasource.DataSource
	Table  *model.Table
	Store  *store.Store
	// Watch re-reads the source when it changes on disk.
	Watch bool
	// StateDir holds the state files of sources switched to at runtime.
	StateDir string
}

// Model is the terminal host of one slicer.
type Model struct {
	cfg      config.Config
	source   datasource.DataSource
	table    *model.Table
	host     *store.Host
	visual   *slicer.Visual
	stateDir string

	tree        TreeModel
	theme       Theme
	searchInput textinput.Model
	searching   bool
	showHelp    bool

	watch   bool
	watcher *watcher.Watcher

	statusMsg     string
	statusIsError bool
	width         int
	height        int
	quitting      bool
}

// NewModel creates the model and runs the first update.
func NewModel(opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())

	st := opts.Store
	if st == nil {
		st = store.NewMemory(slicer.PersistedState{})
	}
	if opts.Config.Slicer.HideEmptyLeaves {
		st.Default(slicer.ObjectOptions, slicer.PropHideEmptyLeaves, true)
	}
	host := store.NewHost(st)

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search..."
	ti.CharLimit = 100
	ti.Width = 40

	tree := NewTreeModel(theme)
	tree.SetShowLevels(opts.Config.UI.ShowLevels)
	tree.SetMaxLabelWidth(opts.Config.UI.MaxWidth)

	m := Model{
		cfg:         opts.Config,
		source:      opts.Source,
		table:       opts.Table,
		host:        host,
		visual:      slicer.NewVisual(host, opts.Config.Slicer.Options()),
		stateDir:    opts.StateDir,
		tree:        tree,
		theme:       theme,
		searchInput: ti,
		watch:       opts.Watch,
	}
	if m.table == nil {
		m.table = &model.Table{}
	}
	m.visual.Update(m.table)
	m.syncTree()

	if opts.Watch {
		m.startWatcher(opts.Source.Path)
	}
	return m
}

func (m *Model) startWatcher(path string) {
	if m.watcher != nil {
		m.watcher.Stop()
		m.watcher = nil
	}
	if path == "" {
		return
	}
	w, err := watcher.New(path, watcher.WithDebounce(watcher.DefaultDebounceDuration))
	if err == nil {
		err = w.Start(context.Background())
	}
	if err != nil {
		m.setError(fmt.Sprintf("Live reload unavailable: %v", err))
		return
	}
	m.watcher = w
}

func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

// Filter returns the filter of the current selection.
func (m Model) Filter() *model.FilterExpr {
	return m.visual.Filter()
}

// refresh re-runs the slicer after a property write.
func (m *Model) refresh() {
	m.visual.Update(nil)
	m.syncTree()
	if err := m.host.Err(); err != nil {
		m.setError(fmt.Sprintf("Saving state failed: %v", err))
	}
}

func (m *Model) syncTree() {
	cols := make([]string, len(m.table.Columns))
	for i, c := range m.table.Columns {
		cols[i] = c.Name
	}
	m.tree.SetColumns(cols)
	m.tree.SetNodes(m.host.Nodes(), m.visual.Searching())
}

func (m *Model) setStatus(msg string) {
	m.statusMsg = msg
	m.statusIsError = false
}

func (m *Model) setError(msg string) {
	m.statusMsg = msg
	m.statusIsError = true
}

func (m *Model) resize() {
	h := m.height - footerLines
	if m.searching {
		h--
	}
	m.tree.SetSize(m.width, h)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		m.statusMsg = ""
		m.statusIsError = false

		if m.showHelp {
			switch msg.String() {
			case "?", "esc", "q":
				m.showHelp = false
			case "ctrl+c":
				return m.quit()
			}
			return m, nil
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		return m.updateTree(msg)

	case FileChangedMsg:
		debug.Log("ui: %s changed, reloading", m.source.Path)
		return m, ReloadTableCmd(m.source)

	case WatchErrorMsg:
		debug.Log("watcher: %v", msg.Err)
		m.setError(fmt.Sprintf("Watch: %v", msg.Err))
		return m, m.rewatch(true)

	case SwitchSourceMsg:
		m.setStatus(fmt.Sprintf("Loading %s…", msg.Source.Name))
		return m, LoadSourceCmd(msg.Source, m.stateDir)

	case TableLoadedMsg:
		return m.handleLoaded(msg)
	}
	return m, nil
}

func (m Model) handleLoaded(msg TableLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if msg.Reload {
			m.setError(fmt.Sprintf("Reload error: %v", msg.Err))
		} else {
			m.setError(fmt.Sprintf("Loading %s failed: %v", msg.Name, msg.Err))
		}
		return m, m.rewatch(msg.Reload)
	}

	if msg.Reload {
		diff := datasource.DiffTables(m.table, msg.Table)
		m.setStatus("Reloaded: " + diff.Summary())
	} else {
		if msg.Store != nil {
			m.host.SetStore(msg.Store)
		}
		m.setStatus(fmt.Sprintf("Switched to %s (%d rows)", msg.Name, len(msg.Table.Rows)))
	}
	m.table = msg.Table
	m.source = msg.Source
	m.visual.Update(m.table)
	m.syncTree()

	if !msg.Reload && m.watch {
		m.startWatcher(m.source.Path)
		if m.watcher != nil {
			return m, WatchFileCmd(m.watcher)
		}
		return m, nil
	}
	return m, m.rewatch(msg.Reload)
}

func (m Model) rewatch(reload bool) tea.Cmd {
	if reload && m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.watcher != nil {
		m.watcher.Stop()
	}
	return m, tea.Quit
}

func (m Model) updateTree(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	node := m.tree.SelectedNode()

	switch key := msg.String(); key {
	case "ctrl+c", "q":
		return m.quit()

	case "j", "down":
		m.tree.MoveDown()
	case "k", "up":
		m.tree.MoveUp()
	case "g", "home":
		m.tree.JumpToTop()
	case "G", "end":
		m.tree.JumpToBottom()
	case "ctrl+d":
		m.tree.PageDown()
	case "ctrl+u":
		m.tree.PageUp()
	case "pgdown":
		m.tree.PageForwardFull()
	case "pgup":
		m.tree.PageBackwardFull()
	case "p":
		m.tree.JumpToParent()

	case "enter":
		if node != nil {
			m.visual.ToggleExpand(node.OwnID)
			m.refresh()
		}
	case "l", "right":
		switch {
		case node == nil || node.IsLeaf:
		case node.IsExpand:
			m.tree.MoveDown()
		default:
			m.visual.SetExpanded(node.OwnID, true)
			m.refresh()
		}
	case "h", "left":
		if node != nil && node.IsExpand && !node.IsLeaf {
			m.visual.SetExpanded(node.OwnID, false)
			m.refresh()
		} else {
			m.tree.JumpToParent()
		}
	case "E":
		m.visual.ExpandAll()
		m.refresh()
	case "C":
		m.visual.CollapseAll()
		m.refresh()

	case " ", "space":
		if node != nil {
			m.visual.ToggleSelect(node.OwnID)
			m.refresh()
		}
	case "x":
		m.visual.ClearSelection()
		m.refresh()
		m.setStatus("Selection cleared")
	case "y":
		m.copyFilter()
	case "b":
		hide := !m.visual.State().HideEmptyLeaves
		m.visual.SetHideEmptyLeaves(hide)
		m.refresh()
		if hide {
			m.setStatus("Blank leaves hidden")
		} else {
			m.setStatus("Blank leaves shown")
		}

	case "/":
		m.searching = true
		m.searchInput.SetValue(m.visual.State().SearchText)
		m.searchInput.CursorEnd()
		m.resize()
		return m, m.searchInput.Focus()
	case "esc":
		if m.visual.State().SearchText != "" {
			m.visual.SetSearch("")
			m.refresh()
		}
	case "?":
		m.showHelp = true

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		n := int(key[0] - '0')
		src := m.cfg.FavoriteSource(n)
		if src == nil {
			m.setError(fmt.Sprintf("No favorite source on key %d", n))
			return m, nil
		}
		s := *src
		return m, func() tea.Msg { return SwitchSourceMsg{Source: s} }
	}
	return m, nil
}

func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m.quit()
	case "esc":
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		m.visual.SetSearch("")
		m.refresh()
		m.resize()
		return m, nil
	case "enter":
		m.searching = false
		m.searchInput.Blur()
		m.resize()
		return m, nil
	}

	var cmd tea.Cmd
	before := m.searchInput.Value()
	m.searchInput, cmd = m.searchInput.Update(msg)
	if after := m.searchInput.Value(); after != before {
		m.visual.SetSearch(after)
		m.refresh()
	}
	return m, cmd
}

func (m *Model) copyFilter() {
	expr := m.Filter()
	if expr == nil {
		m.setError("Nothing selected")
		return
	}
	if err := clipboardWrite(expr.String()); err != nil {
		m.setError(fmt.Sprintf("Clipboard error: %v", err))
		return
	}
	m.setStatus("Filter copied to clipboard")
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		ctx := ContextTree
		if m.searching {
			ctx = ContextSearch
		}
		return RenderContextHelp(ctx, m.theme, m.width, m.height)
	}

	var sb strings.Builder
	sb.WriteString(m.tree.View())
	if m.searching {
		sb.WriteString("\n")
		sb.WriteString(m.renderSearchBar())
	}
	sb.WriteString("\n")
	sb.WriteString(m.renderFooter())
	return sb.String()
}

func (m Model) renderSearchBar() string {
	info := ""
	minLen := m.visual.Options().SearchMinLength
	if minLen <= 0 {
		minLen = slicer.DefaultSearchMinLength
	}
	if n := len([]rune(m.searchInput.Value())); n > 0 && n < minLen {
		info = fmt.Sprintf(" [type %d+ characters]", minLen)
	} else if m.visual.Searching() {
		info = fmt.Sprintf(" [%d shown]", m.tree.NodeCount())
	}
	return m.searchInput.View() + m.theme.MutedText.Render(info)
}

// renderFooter shows the source summary, then the current filter or the
// status message.
func (m Model) renderFooter() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	selected := 0
	for _, n := range m.visual.Nodes() {
		if n.Selected {
			selected++
		}
	}
	name := m.source.Path
	if name == "" {
		name = "(no source)"
	}
	summary := fmt.Sprintf("%s · %d rows · %d nodes · %d selected", name, len(m.table.Rows), len(m.visual.Nodes()), selected)
	if m.visual.State().SearchText != "" && !m.searching {
		summary += fmt.Sprintf(" · search %q", m.visual.State().SearchText)
	}
	line1 := m.theme.SecondaryText.Render(truncate(summary, width))

	var line2 string
	switch {
	case m.statusMsg != "" && m.statusIsError:
		line2 = m.theme.ErrorText.Render(truncate(m.statusMsg, width))
	case m.statusMsg != "":
		line2 = m.theme.PrimaryBold.Render(truncate(m.statusMsg, width))
	default:
		filter := "no filter"
		if expr := m.Filter(); expr != nil {
			filter = "filter: " + expr.String()
		}
		line2 = m.theme.MutedText.Render(truncate(filter, width))
	}
	return line1 + "\n" + line2
}
