package tui

import "github.com/charmbracelet/lipgloss"

var (
	appStyle = lipgloss.NewStyle().Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51")) // cyan

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	questionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("255")).
			MarginTop(1).
			MarginBottom(1)

	answerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("31")).
			Padding(0, 2).
			MarginRight(1)

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	conditionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	confidenceHigh = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	confidenceMid  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	confidenceLow  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("208"))

	reportBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("31")).
			Padding(1, 2).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("51"))

	checkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			MarginTop(1)
)

// confidenceStyle picks the style band for a confidence score.
func confidenceStyle(confidence float64) lipgloss.Style {
	switch {
	case confidence > 75:
		return confidenceHigh
	case confidence > 50:
		return confidenceMid
	default:
		return confidenceLow
	}
}
