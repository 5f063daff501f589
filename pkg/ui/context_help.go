package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// Context identifies which part of the UI has focus, for help content.
type Context int

const (
	ContextTree Context = iota
	ContextSearch
)

// ContextHelpContent contains compact markdown help for each context. It
// should fit on one screen without scrolling.
var ContextHelpContent = map[Context]string{
	ContextTree:   contextHelpTree,
	ContextSearch: contextHelpSearch,
}

// GetContextHelp returns the help content for a given context.
// Falls back to the tree help if the context has no specific content.
func GetContextHelp(ctx Context) string {
	if content, ok := ContextHelpContent[ctx]; ok {
		return content
	}
	return contextHelpTree
}

// renderMarkdown renders help markdown for the terminal. If glamour cannot
// build a renderer the raw markdown is returned.
func renderMarkdown(md string, wrap int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

// RenderContextHelp renders the help modal for ctx.
func RenderContextHelp(ctx Context, theme Theme, width, height int) string {
	r := theme.Renderer

	modalWidth := 60
	if modalWidth > width-4 {
		modalWidth = width - 4
	}
	if modalWidth < 20 {
		modalWidth = 20
	}

	titleStyle := r.NewStyle().
		Bold(true).
		Foreground(theme.Primary)

	footerStyle := r.NewStyle().
		Foreground(theme.Muted).
		Italic(true)

	var b strings.Builder
	b.WriteString(titleStyle.Render("Quick Reference"))
	b.WriteString("\n")
	b.WriteString(r.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", modalWidth-4)))
	b.WriteString("\n")
	b.WriteString(renderMarkdown(GetContextHelp(ctx), modalWidth-4))
	b.WriteString("\n\n")
	b.WriteString(footerStyle.Render("? or Esc to close"))

	modalStyle := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Secondary).
		Padding(1, 2).
		Width(modalWidth)

	modal := modalStyle.Render(b.String())
	if width <= 0 || height <= 0 {
		return modal
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}

const contextHelpTree = `## Slicer

**Navigation**

    j/k       Move up/down
    g/G       Jump to top/bottom
    ^d/^u     Page down/up
    p         Jump to parent

**Structure**

    Enter     Toggle expand/collapse
    l/h       Expand / collapse or go to parent
    E/C       Expand/collapse all

**Selection**

    Space     Toggle selection
    x         Clear selection
    y         Copy filter expression
    b         Hide/show blank leaves

**Other**

    /         Search
    1-9       Switch to favorite source
    q         Quit`

const contextHelpSearch = `## Search

    type      Narrow the tree (3+ characters)
    Enter     Keep results, back to the tree
    Esc       Clear the search

Matching is case-insensitive and keeps every
ancestor of a match visible.`
