package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	normalFg = lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"}
	dimFg    = lipgloss.AdaptiveColor{Light: "#A49FA5", Dark: "#777777"}
	fuchsia  = lipgloss.Color("#EE6FF8")
	green    = lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	red      = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)

	itemStyle         = lipgloss.NewStyle().Foreground(normalFg)
	selectedItemStyle = lipgloss.NewStyle().Foreground(fuchsia).Bold(true)
	subtleStyle       = lipgloss.NewStyle().Foreground(dimFg)
	playingStyle      = lipgloss.NewStyle().Foreground(green)
	errorTitleStyle   = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFDF5")).
				Background(red).
				Padding(0, 1)
)

func hasDarkBackground() bool {
	return termenv.HasDarkBackground()
}
