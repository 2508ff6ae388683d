package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	skyBlue    = lipgloss.Color("#1DA1F2")
	deepBlue   = lipgloss.Color("#14171A")
	panelBg    = lipgloss.Color("#192734")
	okGreen    = lipgloss.Color("#17BF63")
	warnOrange = lipgloss.Color("#FFAD1F")
	failRed    = lipgloss.Color("#E0245E")
	dimWhite   = lipgloss.Color("#AAB8C2")
	faintGray  = lipgloss.Color("#657786")

	baseStyle = lipgloss.NewStyle().
			Background(deepBlue).
			Foreground(dimWhite)

	headerStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true).
			Padding(1, 0).
			Align(lipgloss.Center)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(skyBlue).
			Background(panelBg).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Background(skyBlue).
			Foreground(deepBlue).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
			Foreground(okGreen).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(failRed).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warnOrange).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(faintGray).
			PaddingLeft(2)

	activeStyle = lipgloss.NewStyle().
			Foreground(skyBlue).
			Bold(true).
			PaddingLeft(2)

	doneStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			PaddingLeft(2)

	logTimestampStyle = lipgloss.NewStyle().
				Foreground(faintGray)

	logMessageStyle = lipgloss.NewStyle().
			Foreground(dimWhite)

	helpStyle = lipgloss.NewStyle().
			Foreground(faintGray).
			Padding(1, 0, 0, 2)
)

// levelColor returns the color of a log level label
func levelColor(level string) lipgloss.Color {
	switch level {
	case LevelError:
		return failRed
	case LevelWarn:
		return warnOrange
	case LevelSuccess:
		return okGreen
	default:
		return skyBlue
	}
}
