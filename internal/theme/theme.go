package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/replydeck/internal/model"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue    = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorGreen   = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow  = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed     = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorOrange  = lipgloss.AdaptiveColor{Dark: "#FFA94D", Light: "#C05621"}
	ColorMagenta = lipgloss.AdaptiveColor{Dark: "#CC5DE8", Light: "#805AD5"}
	ColorGray    = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite   = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder  = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorBlue).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// DetailPanelStyle wraps overlay and form content.
var DetailPanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// CardStyle frames a notification card.
var CardStyle = lipgloss.NewStyle().
	Padding(0, 1).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// FocusedCardStyle frames the card that has keyboard focus.
var FocusedCardStyle = CardStyle.
	BorderForeground(ColorBlue)

// HelpStyle is used for keyboard shortcut hints and help text.
var HelpStyle = lipgloss.NewStyle().
	Foreground(ColorGray).
	Italic(true)

// DimmedStyle renders secondary text such as timestamps and history.
var DimmedStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ErrorStyle renders soft errors in the status bar and panels.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(ColorRed)

// UrgencyColor returns the accent color of an urgency level.
func UrgencyColor(u model.Urgency) lipgloss.AdaptiveColor {
	switch u {
	case model.UrgencyHigh:
		return ColorRed
	case model.UrgencyMedium:
		return ColorOrange
	default:
		return ColorGreen
	}
}

// UrgencyDot renders the colored marker shown before a card's sender.
func UrgencyDot(u model.Urgency) string {
	return lipgloss.NewStyle().Foreground(UrgencyColor(u)).Render("●")
}

// SentimentStyle returns a color-coded style for a reply option.
func SentimentStyle(s model.Sentiment) lipgloss.Style {
	base := lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder())

	switch s {
	case model.SentimentPositive:
		return base.Foreground(ColorGreen).BorderForeground(ColorGreen)
	case model.SentimentNegative:
		return base.Foreground(ColorRed).BorderForeground(ColorRed)
	default:
		return base.Foreground(ColorBlue).BorderForeground(ColorBlue)
	}
}

// SelectedOptionStyle highlights the focused reply option.
func SelectedOptionStyle(s model.Sentiment) lipgloss.Style {
	return SentimentStyle(s).Bold(true).BorderStyle(lipgloss.ThickBorder())
}
