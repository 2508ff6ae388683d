package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	errs "tweetvault/pkg/errors"
)

// PhaseState is where a crawl phase stands
type PhaseState int

const (
	PhasePending PhaseState = iota
	PhaseActive
	PhaseCompleted
	PhaseFailed
)

// Log levels shown in the log panel
const (
	LevelInfo    = "INFO"
	LevelWarn    = "WARN"
	LevelError   = "ERROR"
	LevelSuccess = "SUCCESS"
)

// PhaseItem is one row of the phase panel
type PhaseItem struct {
	Name     string
	State    PhaseState
	Started  time.Time
	Duration time.Duration
	Err      error
}

// DownloadStats are the dispatcher counters shown in the media panel
type DownloadStats struct {
	Fetched  int64
	Existing int64
	Skipped  int64
	Failed   int64
	Pending  int
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
}

// Model is the bubbletea model of a running crawl
type Model struct {
	spinner  spinner.Model
	progress progress.Model

	account string
	phases  []*PhaseItem
	byName  map[string]*PhaseItem
	active  *PhaseItem

	stats     func() DownloadStats
	downloads DownloadStats

	waitEndpoint string
	waitUntil    time.Time
	waits        int

	startTime      time.Time
	finished       bool
	finalErr       error
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	now func() time.Time
}

// NewModel creates a model listing phases in run order. stats is polled
// on every tick and may be nil.
func NewModel(account string, phases []string, stats func() DownloadStats) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(skyBlue)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	m := &Model{
		spinner:        s,
		progress:       p,
		account:        account,
		byName:         make(map[string]*PhaseItem),
		stats:          stats,
		startTime:      time.Now(),
		maxLogMessages: 50,
		now:            time.Now,
	}
	for _, name := range phases {
		item := &PhaseItem{Name: name}
		m.phases = append(m.phases, item)
		m.byName[name] = item
	}
	return m
}

// Init starts the spinner and the refresh tick
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

// startPhase closes the running phase as completed and activates name
func (m *Model) startPhase(name string) {
	m.closeActive(nil)

	item, ok := m.byName[name]
	if !ok {
		item = &PhaseItem{Name: name}
		m.phases = append(m.phases, item)
		m.byName[name] = item
	}
	item.State = PhaseActive
	item.Started = m.now()
	m.active = item
	m.waitEndpoint = ""
	m.addLog(LevelInfo, "Phase started: "+name)
}

func (m *Model) closeActive(err error) {
	if m.active == nil {
		return
	}
	m.active.Duration = m.now().Sub(m.active.Started)
	if err != nil {
		m.active.State = PhaseFailed
		m.active.Err = err
	} else {
		m.active.State = PhaseCompleted
	}
	m.active = nil
}

// finish closes the last phase and marks every phase named by a
// PhaseError in err as failed
func (m *Model) finish(err error) {
	m.closeActive(nil)
	m.finished = true
	m.finalErr = err
	m.waitEndpoint = ""

	for _, pe := range phaseErrors(err) {
		if item, ok := m.byName[pe.Phase]; ok {
			item.State = PhaseFailed
			item.Err = pe.Err
		}
		m.addLog(LevelError, pe.Error())
	}

	switch {
	case err == nil:
		m.addLog(LevelSuccess, "Archive of @"+m.account+" is up to date")
	case len(phaseErrors(err)) == 0:
		m.addLog(LevelWarn, "Run stopped: "+err.Error())
	}
}

func (m *Model) rateLimited(endpoint string, wait time.Duration) {
	m.waits++
	m.waitEndpoint = endpoint
	m.waitUntil = m.now().Add(wait)
	m.addLog(LevelWarn, "Rate limit on "+endpoint+", waiting "+formatDuration(wait))
}

func (m *Model) addLog(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    m.now(),
		Level:   level,
		Message: message,
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

// completedRatio is the share of phases that are no longer pending or active
func (m *Model) completedRatio() float64 {
	if len(m.phases) == 0 {
		return 0
	}
	var closed int
	for _, p := range m.phases {
		if p.State == PhaseCompleted || p.State == PhaseFailed {
			closed++
		}
	}
	return float64(closed) / float64(len(m.phases))
}

// phaseErrors flattens a joined error into its phase failures
func phaseErrors(err error) []*errs.PhaseError {
	if err == nil {
		return nil
	}

	var out []*errs.PhaseError
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			out = append(out, phaseErrors(e)...)
		}
		return out
	}

	var pe *errs.PhaseError
	if errors.As(err, &pe) {
		out = append(out, pe)
	}
	return out
}
