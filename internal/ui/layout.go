package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/theme"
)

// Layout manages the terminal frame: a one-line header, the content area
// and a one-line status bar.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height left for the active view.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// RenderHeader renders the title on the left and the connection state on
// the right.
func (l Layout) RenderHeader(title, status string) string {
	return l.bar(theme.HeaderStyle, title, status)
}

// RenderStatusBar renders hints or the latest status message.
func (l Layout) RenderStatusBar(text string) string {
	return l.bar(theme.StatusBarStyle, text, "")
}

// bar spreads left and right across the full width with style's
// background in between.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	parts := []string{style.Render(left)}
	if right != "" {
		parts = append(parts, style.Render(right))
	}

	used := 0
	for _, p := range parts {
		used += lipgloss.Width(p)
	}
	filler := lipgloss.NewStyle().
		Width(max(l.Width-used, 0)).
		Background(style.GetBackground()).
		Render("")

	if right == "" {
		return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts[0], filler, parts[1])
}

// RenderWithFrame stacks header, content and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	content = lipgloss.NewStyle().
		Height(l.ContentHeight()).
		MaxHeight(l.ContentHeight()).
		Render(content)
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
