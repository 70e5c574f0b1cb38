package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorPrimary = lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#05A167", Dark: "#05D176"}
	colorError   = lipgloss.AdaptiveColor{Light: "#E06A56", Dark: "#F97171"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#E0A956", Dark: "#F9C171"}
	colorInfo    = lipgloss.AdaptiveColor{Light: "#5A9FE0", Dark: "#71B7F9"}
	colorSubtle  = lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#D1D1D1", Dark: "#3C3C3C"}
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	successStyle  = lipgloss.NewStyle().Foreground(colorSuccess)
	errorStyle    = lipgloss.NewStyle().Foreground(colorError)
	warningStyle  = lipgloss.NewStyle().Foreground(colorWarning)
	infoStyle     = lipgloss.NewStyle().Foreground(colorInfo)
	subtleStyle   = lipgloss.NewStyle().Foreground(colorSubtle)
	labelStyle    = lipgloss.NewStyle().Bold(true).Width(18)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorBorder).Padding(0, 1)
)
