package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/airtop/model"
)

var (
	// Colors
	colorRed     = lipgloss.Color("#FF5555")
	colorYellow  = lipgloss.Color("#F1FA8C")
	colorGreen   = lipgloss.Color("#50FA7B")
	colorCyan    = lipgloss.Color("#8BE9FD")
	colorMagenta = lipgloss.Color("#FF79C6")
	colorOrange  = lipgloss.Color("#FFB86C")
	colorWhite   = lipgloss.Color("#F8F8F2")
	colorGray    = lipgloss.Color("#6272A4")
	colorPanel   = lipgloss.Color("#44475A")

	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 2)

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	valueStyle    = lipgloss.NewStyle().Foreground(colorWhite)
	bigValueStyle = lipgloss.NewStyle().Bold(true).Foreground(colorWhite)
	critStyle     = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	okStyle       = lipgloss.NewStyle().Foreground(colorGreen)
	headerStyle   = lipgloss.NewStyle().Foreground(colorMagenta).Bold(true)
	selectedStyle = lipgloss.NewStyle().Background(colorPanel).Foreground(colorWhite).Bold(true)
	helpStyle     = lipgloss.NewStyle().Foreground(colorGray)
	dimStyle      = lipgloss.NewStyle().Foreground(colorGray)
	orangeStyle   = lipgloss.NewStyle().Foreground(colorOrange)
	lowStyle      = lipgloss.NewStyle().Foreground(colorOrange)
	balancedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	highStyle     = lipgloss.NewStyle().Foreground(colorCyan)
	warnStyle     = lipgloss.NewStyle().Foreground(colorYellow).Bold(true)
)

// stateStyle colors a cell by its classification.
func stateStyle(s model.BalanceState) lipgloss.Style {
	switch s {
	case model.StateLow:
		return lowStyle
	case model.StateBalanced:
		return balancedStyle
	case model.StateHigh:
		return highStyle
	default:
		return dimStyle
	}
}

// bannerColor picks the banner border color.
func bannerColor(s model.BannerState) lipgloss.Color {
	switch s {
	case model.BannerLow:
		return colorOrange
	case model.BannerBalanced:
		return colorGreen
	default:
		return colorCyan
	}
}
