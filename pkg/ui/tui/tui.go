package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// TUI is the full-screen display of a running crawl
type TUI struct {
	program *tea.Program
	model   *Model
}

// NewTUI creates a display for the archive of account
func NewTUI(account string, phases []string, stats func() DownloadStats) *TUI {
	model := NewModel(account, phases, stats)
	return &TUI{
		program: tea.NewProgram(model, tea.WithAltScreen()),
		model:   model,
	}
}

// Start runs the display until Stop is called or the user quits
func (t *TUI) Start() error {
	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

// PhaseStarted marks name as the running phase
func (t *TUI) PhaseStarted(name string) {
	t.Send(PhaseStartMsg{Name: name})
}

// RateLimited shows a governor suspension
func (t *TUI) RateLimited(endpoint string, wait time.Duration) {
	t.Send(RateLimitMsg{Endpoint: endpoint, Wait: wait})
}

// Finish reports the outcome of the run
func (t *TUI) Finish(err error) {
	t.Send(FinishedMsg{Err: err})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}
