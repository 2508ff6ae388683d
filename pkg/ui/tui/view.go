package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderPhasesPanel(m.columnWidth()),
		m.renderMediaPanel(m.columnWidth()),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderRateLimitPanel(m.columnWidth()),
		m.renderLogsPanel(m.columnWidth()),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to stop"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) columnWidth() int {
	return (m.width - 4) / 2
}

func (m *Model) renderHeader() string {
	status := m.spinner.View() + " archiving"
	switch {
	case m.finished && m.finalErr == nil:
		status = successStyle.Render("✓ finished")
	case m.finished:
		status = errorStyle.Render("✗ finished with errors")
	}

	line := fmt.Sprintf("tweetvault  @%s  %s  %s",
		m.account, status, formatDuration(m.now().Sub(m.startTime)))
	return headerStyle.Width(m.width).Render(line)
}

func (m *Model) renderPhasesPanel(width int) string {
	title := titleStyle.Render(" PHASES ")

	rows := []string{m.progress.ViewAs(m.completedRatio()), ""}
	for _, p := range m.phases {
		rows = append(rows, m.renderPhase(p))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

func (m *Model) renderPhase(p *PhaseItem) string {
	switch p.State {
	case PhaseActive:
		return activeStyle.Render(fmt.Sprintf("%s %s %s", m.spinner.View(), p.Name, formatDuration(m.now().Sub(p.Started))))
	case PhaseCompleted:
		return doneStyle.Render(fmt.Sprintf("✓ %s %s", p.Name, formatDuration(p.Duration)))
	case PhaseFailed:
		return errorStyle.PaddingLeft(2).Render("✗ " + p.Name)
	default:
		return pendingStyle.Render("• " + p.Name)
	}
}

func (m *Model) renderMediaPanel(width int) string {
	title := titleStyle.Render(" MEDIA ")
	d := m.downloads

	rows := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Downloaded:"), valueStyle.Render(fmt.Sprint(d.Fetched))),
		fmt.Sprintf("%s %s", labelStyle.Render("Already stored:"), valueStyle.Render(fmt.Sprint(d.Existing))),
		fmt.Sprintf("%s %s", labelStyle.Render("Archived before:"), valueStyle.Render(fmt.Sprint(d.Skipped))),
		fmt.Sprintf("%s %s", labelStyle.Render("Queued:"), valueStyle.Render(fmt.Sprint(d.Pending))),
	}
	if d.Failed > 0 {
		rows = append(rows, errorStyle.Render(fmt.Sprintf("%d failed", d.Failed)))
	}

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

func (m *Model) renderRateLimitPanel(width int) string {
	title := titleStyle.Render(" RATE LIMIT ")

	var rows []string
	remaining := m.waitUntil.Sub(m.now())
	if m.waitEndpoint != "" && remaining > 0 {
		rows = append(rows,
			warningStyle.Render("Suspended on "+m.waitEndpoint),
			fmt.Sprintf("%s %s", labelStyle.Render("Resumes in:"), valueStyle.Render(formatDuration(remaining))),
		)
	} else {
		rows = append(rows, successStyle.Render("Within budget"))
	}
	rows = append(rows, fmt.Sprintf("%s %s", labelStyle.Render("Waits this run:"), valueStyle.Render(fmt.Sprint(m.waits))))

	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, strings.Join(rows, "\n")),
	)
}

func (m *Model) renderLogsPanel(width int) string {
	title := titleStyle.Render(" LOG ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	var logs []string
	maxMsgLen := width - 25
	for _, entry := range m.logMessages[start:] {
		message := entry.Message
		if maxMsgLen > 3 && len(message) > maxMsgLen {
			message = message[:maxMsgLen-3] + "..."
		}
		logs = append(logs, fmt.Sprintf("%s %s %s",
			logTimestampStyle.Render(entry.Time.Format("15:04:05")),
			lipgloss.NewStyle().Foreground(levelColor(entry.Level)).Bold(true).Render(fmt.Sprintf("[%-7s]", entry.Level)),
			logMessageStyle.Render(message),
		))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("Nothing yet...")
	}

	logsHeight := m.height - 24
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Stop the run (positions are kept, run again to resume)
    ctrl+l   - Clear the log panel
    ?        - Toggle this help

  Phases:
    • pending   ` + activeStyle.Render("active") + `   ` + successStyle.Render("✓ done") + `   ` + errorStyle.Render("✗ failed") + `
`
	return panelStyle.Width(m.width).Render(help)
}

// formatDuration formats a duration as mm:ss or hh:mm:ss
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	h := int(d.Hours())
	mins := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, mins, s)
	}
	return fmt.Sprintf("%02d:%02d", mins, s)
}
