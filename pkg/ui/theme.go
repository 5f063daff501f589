package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile, computed once at
// package init.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// lowColor reports whether the terminal has fewer than 256 colors. The
// cursor row background is unreadable there, so it is drawn reversed.
func lowColor() bool {
	return TermProfile < colorprofile.ANSI256
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Selection
	Checked lipgloss.AdaptiveColor
	Partial lipgloss.AdaptiveColor
	Danger  lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed row styles, created once instead of per frame
	MutedText     lipgloss.Style // Tree branches, level hints
	SecondaryText lipgloss.Style // Footer
	PrimaryBold   lipgloss.Style // Search prompt
	CheckedText   lipgloss.Style // [x]
	PartialText   lipgloss.Style // [~]
	ErrorText     lipgloss.Style // Status errors
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,

		Checked: ColorSuccess,
		Partial: ColorWarning,
		Danger:  ColorDanger,

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     ColorMuted,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Selected = r.NewStyle().
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)
	if lowColor() {
		t.Selected = t.Selected.Reverse(true)
	} else {
		t.Selected = t.Selected.Background(t.Highlight)
	}

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.CheckedText = r.NewStyle().Foreground(t.Checked).Bold(true)
	t.PartialText = r.NewStyle().Foreground(t.Partial).Bold(true)
	t.ErrorText = r.NewStyle().Foreground(t.Danger).Bold(true)

	return t
}
