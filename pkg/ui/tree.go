package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/hierslicer/pkg/model"
)

// TreeModel renders the visible slicer nodes as a checkbox tree and keeps
// the cursor and viewport. It never changes node state itself; expand and
// select requests go through the Visual.
type TreeModel struct {
	nodes     []*model.Node
	byID      map[string]*model.Node
	lastChild map[string]string // parent ownId -> last rendered child
	columns   []string

	cursor         int
	viewportOffset int
	width          int
	height         int
	showLevels     bool
	maxLabelWidth  int
	searching      bool
	built          bool
	theme          Theme
}

// NewTreeModel creates an empty tree view.
func NewTreeModel(theme Theme) TreeModel {
	return TreeModel{
		theme:     theme,
		byID:      make(map[string]*model.Node),
		lastChild: make(map[string]string),
	}
}

// SetSize updates the viewport dimensions.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetColumns sets the level names shown in the header.
func (t *TreeModel) SetColumns(names []string) {
	t.columns = names
}

// SetShowLevels toggles the level hint after each label.
func (t *TreeModel) SetShowLevels(show bool) {
	t.showLevels = show
}

// SetMaxLabelWidth caps label width; 0 uses the terminal width.
func (t *TreeModel) SetMaxLabelWidth(n int) {
	t.maxLabelWidth = n
}

// SetNodes replaces the rendered nodes. The cursor stays on the same ownId
// when it is still visible.
func (t *TreeModel) SetNodes(nodes []*model.Node, searching bool) {
	prev := t.GetSelectedID()

	t.nodes = nodes
	t.searching = searching
	t.built = true
	t.byID = make(map[string]*model.Node, len(nodes))
	t.lastChild = make(map[string]string)
	for _, n := range nodes {
		t.byID[n.OwnID] = n
		t.lastChild[n.ParentID] = n.OwnID
	}

	if prev == "" || !t.SelectByID(prev) {
		if t.cursor >= len(t.nodes) {
			t.cursor = len(t.nodes) - 1
		}
		if t.cursor < 0 {
			t.cursor = 0
		}
	}
	t.ensureCursorVisible()
}

// View renders the header, the visible window of nodes and, when the list
// does not fit, a position indicator.
func (t *TreeModel) View() string {
	if !t.built || len(t.nodes) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	sb.WriteString(t.RenderHeader())
	sb.WriteString("\n")

	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		node := t.nodes[i]
		isSelected := i == t.cursor
		line := t.renderNode(node, isSelected)
		if isSelected {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	if len(t.nodes) > t.effectiveVisibleCount() {
		sb.WriteString(t.renderPositionIndicator(start, end))
	}

	return sb.String()
}

// renderPositionIndicator renders "Page X/Y (start-end of total)" using
// 1-indexed numbers.
func (t *TreeModel) renderPositionIndicator(start, end int) string {
	currentPage, totalPages := t.pageInfo(t.effectiveVisibleCount())
	indicator := fmt.Sprintf(" Page %d/%d (%d-%d of %d)", currentPage, totalPages, start+1, end, len(t.nodes))
	return t.theme.MutedText.Render(indicator)
}

// pageInfo returns the current page number and total pages based on visible count.
func (t *TreeModel) pageInfo(pageSize int) (currentPage, totalPages int) {
	if pageSize <= 0 {
		pageSize = 1
	}
	totalPages = (len(t.nodes) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	currentPage = (t.viewportOffset / pageSize) + 1
	if currentPage > totalPages {
		currentPage = totalPages
	}
	return currentPage, totalPages
}

func (t *TreeModel) renderEmptyState() string {
	titleStyle := t.theme.Renderer.NewStyle().
		Foreground(t.theme.Primary).
		Bold(true)

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Slicer"))
	sb.WriteString("\n\n")
	switch {
	case !t.built:
		sb.WriteString(t.theme.MutedText.Render("Loading…"))
	case t.searching:
		sb.WriteString(t.theme.MutedText.Render("Nothing matches."))
	default:
		sb.WriteString(t.theme.MutedText.Render("No rows to display."))
		sb.WriteString("\n\n")
		sb.WriteString(t.theme.MutedText.Render("Every column of the source becomes one level, left to right."))
		sb.WriteString("\n")
		sb.WriteString(t.theme.MutedText.Render("Check the --data path or the --query result."))
	}
	return sb.String()
}

// RenderHeader returns the header row: the level names, left to right.
func (t *TreeModel) RenderHeader() string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	label := strings.Join(t.columns, " › ")
	if t.searching {
		label += "  (search)"
	}
	return t.theme.Header.Width(width).Render(truncate(label, width-2))
}

// renderNode renders one row: [tree-prefix] [expand] [checkbox] [label] [level].
func (t *TreeModel) renderNode(node *model.Node, isSelected bool) string {
	width := t.width
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	var sb strings.Builder
	prefix := t.buildTreePrefix(node)
	sb.WriteString(prefix)
	sb.WriteString(t.theme.MutedText.Render(t.getExpandIndicator(node)))
	sb.WriteString(" ")
	sb.WriteString(t.renderCheckbox(node))
	sb.WriteString(" ")

	used := lipgloss.Width(prefix) + runewidth.StringWidth(IndicatorLeaf) + 1 + len(CheckboxOff) + 1
	if isSelected {
		// Selected style adds a border and padding.
		used += 2
	}

	var hint string
	if t.showLevels {
		hint = fmt.Sprintf("  L%d", node.Level)
	}
	avail := width - used - runewidth.StringWidth(hint)
	if t.maxLabelWidth > 0 && avail > t.maxLabelWidth {
		avail = t.maxLabelWidth
	}
	sb.WriteString(t.theme.Base.Render(truncate(node.Value, avail)))
	if hint != "" {
		sb.WriteString(t.theme.MutedText.Render(hint))
	}
	return sb.String()
}

func (t *TreeModel) renderCheckbox(node *model.Node) string {
	switch {
	case node.PartialSelected:
		return t.theme.PartialText.Render(CheckboxPartial)
	case node.Selected:
		return t.theme.CheckedText.Render(CheckboxOn)
	default:
		return t.theme.MutedText.Render(CheckboxOff)
	}
}

// buildTreePrefix builds the indentation and branch characters for a node.
func (t *TreeModel) buildTreePrefix(node *model.Node) string {
	if node.IsRoot() {
		return ""
	}

	ancestors := t.getAncestors(node)
	var sb strings.Builder
	for _, ancestor := range ancestors[:len(ancestors)-1] {
		if t.hasSiblingsBelow(ancestor) {
			sb.WriteString("│   ")
		} else {
			sb.WriteString("    ")
		}
	}
	if t.isLastChild(node) {
		sb.WriteString("└── ")
	} else {
		sb.WriteString("├── ")
	}
	return t.theme.MutedText.Render(sb.String())
}

// getAncestors returns the rendered ancestors of a node from root to
// parent, with the node itself at the end.
func (t *TreeModel) getAncestors(node *model.Node) []*model.Node {
	chain := []*model.Node{node}
	for p := t.byID[node.ParentID]; p != nil; p = t.byID[p.ParentID] {
		chain = append([]*model.Node{p}, chain...)
	}
	return chain
}

// hasSiblingsBelow reports whether a later row shares the node's parent.
func (t *TreeModel) hasSiblingsBelow(node *model.Node) bool {
	return !t.isLastChild(node)
}

func (t *TreeModel) isLastChild(node *model.Node) bool {
	return t.lastChild[node.ParentID] == node.OwnID
}

func (t *TreeModel) getExpandIndicator(node *model.Node) string {
	switch {
	case node.IsLeaf:
		return IndicatorLeaf
	case node.IsExpand:
		return IndicatorExpanded
	default:
		return IndicatorCollapsed
	}
}

// SelectedNode returns the node under the cursor, or nil.
func (t *TreeModel) SelectedNode() *model.Node {
	if t.cursor >= 0 && t.cursor < len(t.nodes) {
		return t.nodes[t.cursor]
	}
	return nil
}

// GetSelectedID returns the ownId under the cursor, or "".
func (t *TreeModel) GetSelectedID() string {
	if n := t.SelectedNode(); n != nil {
		return n.OwnID
	}
	return ""
}

// SelectByID moves the cursor to the node with the given ownId.
func (t *TreeModel) SelectByID(id string) bool {
	for i, n := range t.nodes {
		if n.OwnID == id {
			t.cursor = i
			t.ensureCursorVisible()
			return true
		}
	}
	return false
}

// MoveDown moves the cursor down one row.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.nodes)-1 {
		t.cursor++
		t.ensureCursorVisible()
	}
}

// MoveUp moves the cursor up one row.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.cursor--
		t.ensureCursorVisible()
	}
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.cursor = 0
	t.ensureCursorVisible()
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	if len(t.nodes) > 0 {
		t.cursor = len(t.nodes) - 1
		t.ensureCursorVisible()
	}
}

// JumpToParent moves the cursor to the parent of the current node. Roots
// stay put.
func (t *TreeModel) JumpToParent() {
	node := t.SelectedNode()
	if node == nil || node.IsRoot() {
		return
	}
	t.SelectByID(node.ParentID)
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.moveBy(t.halfPage())
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.moveBy(-t.halfPage())
}

// PageForwardFull moves the cursor forward by a full page of rows.
func (t *TreeModel) PageForwardFull() {
	t.moveBy(t.effectiveVisibleCount())
}

// PageBackwardFull moves the cursor backward by a full page of rows.
func (t *TreeModel) PageBackwardFull() {
	t.moveBy(-t.effectiveVisibleCount())
}

func (t *TreeModel) halfPage() int {
	pageSize := t.height / 2
	if pageSize < 1 {
		pageSize = 5
	}
	return pageSize
}

func (t *TreeModel) moveBy(delta int) {
	t.cursor += delta
	if t.cursor >= len(t.nodes) {
		t.cursor = len(t.nodes) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
	t.ensureCursorVisible()
}

// IsBuilt reports whether nodes have been set at least once.
func (t *TreeModel) IsBuilt() bool {
	return t.built
}

// NodeCount returns the number of rendered nodes.
func (t *TreeModel) NodeCount() int {
	return len(t.nodes)
}

// visibleRange returns the [start, end) window of rows to render.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.nodes) == 0 {
		return 0, 0
	}

	visibleCount := t.effectiveVisibleCount()
	start = t.viewportOffset
	if start < 0 {
		start = 0
	}
	end = start + visibleCount
	if end > len(t.nodes) {
		end = len(t.nodes)
		start = end - visibleCount
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// effectiveVisibleCount returns the number of node lines that fit, leaving
// room for the header row and, when scrolling, the position indicator.
func (t *TreeModel) effectiveVisibleCount() int {
	visibleCount := t.height - 1
	if visibleCount <= 0 {
		visibleCount = 19 // Default: 20 minus 1 for header
	}
	if len(t.nodes) > visibleCount {
		visibleCount--
	}
	if visibleCount < 1 {
		visibleCount = 1
	}
	return visibleCount
}

// ensureCursorVisible scrolls the viewport just enough to keep the cursor
// on screen.
func (t *TreeModel) ensureCursorVisible() {
	if len(t.nodes) == 0 {
		t.viewportOffset = 0
		return
	}

	visibleCount := t.effectiveVisibleCount()
	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+visibleCount {
		t.viewportOffset = t.cursor - visibleCount + 1
	}

	maxOffset := len(t.nodes) - visibleCount
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// GetViewportOffset returns the current viewport offset.
func (t *TreeModel) GetViewportOffset() int {
	return t.viewportOffset
}
