package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/airtop/model"
)

// renderBanner draws the summary box: the big value out of maxValue on the
// left, caption and description on the right.
func renderBanner(b *model.Banner, maxValue, width int) string {
	if width < 30 {
		width = 30
	}
	innerW := width - 2 // border
	if b == nil {
		return bannerStyle.Width(innerW).Render(dimStyle.Render("Reading average..."))
	}

	value := bigValueStyle.Render(fmt.Sprintf("%d", b.MainValue)) +
		dimStyle.Render(fmt.Sprintf("/%d", maxValue))
	left := lipgloss.NewStyle().Width(9).Render(value)

	textW := innerW - 4 - lipgloss.Width(left) - 2 // padding, gap
	if textW < 10 {
		textW = 10
	}
	right := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(b.Caption),
		lipgloss.NewStyle().Width(textW).Render(valueStyle.Render(b.Description)),
	)

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	return bannerStyle.
		BorderForeground(bannerColor(b.State)).
		Width(innerW).
		Render(body)
}

// renderScaleToggle draws the M D H toggle bar with the selected scale highlighted.
func renderScaleToggle(selected model.TimeScale) string {
	parts := make([]string, 0, len(model.ToggleScales))
	for _, s := range model.ToggleScales {
		if s == selected {
			parts = append(parts, selectedStyle.Render(" "+s.Short()+" "))
		} else {
			parts = append(parts, dimStyle.Render(" "+s.Short()+" "))
		}
	}
	return strings.Join(parts, " ")
}
