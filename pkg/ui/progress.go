package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"tweetvault/pkg/archive"
)

// Progress prints one line per crawl phase as the run advances
type Progress struct {
	mu         sync.Mutex
	out        io.Writer
	account    string
	start      time.Time
	phase      string
	phaseStart time.Time
	waits      int
	waited     time.Duration
	now        func() time.Time
}

// NewProgress creates a display for the archive of account
func NewProgress(out io.Writer, account string) *Progress {
	return &Progress{
		out:     out,
		account: account,
		start:   time.Now(),
		now:     time.Now,
	}
}

// PhaseStarted closes the running phase and announces name
func (p *Progress) PhaseStarted(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closePhase(true)
	p.phase = name
	p.phaseStart = p.now()
	fmt.Fprintf(p.out, "%s %s\n", Magenta("→"), name)
}

// RateLimited reports a governor suspension
func (p *Progress) RateLimited(endpoint string, wait time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.waits++
	p.waited += wait
	fmt.Fprintf(p.out, "  %s rate limit on %s, waiting %s\n", Yellow("⚠"), endpoint, formatDuration(wait))
}

// Finish closes the last phase
func (p *Progress) Finish(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closePhase(err == nil)
	if err != nil {
		fmt.Fprintf(p.out, "%s %v\n", Red("✗"), err)
	}
}

// Elapsed returns the time since the display was created
func (p *Progress) Elapsed() time.Duration {
	return p.now().Sub(p.start)
}

func (p *Progress) closePhase(ok bool) {
	if p.phase == "" {
		return
	}
	mark := Green("✓")
	if !ok {
		mark = Red("✗")
	}
	fmt.Fprintf(p.out, "%s %s %s\n", mark, p.phase, Dim(formatDuration(p.now().Sub(p.phaseStart))))
	p.phase = ""
}

// Summary is what a finished run reports
type Summary struct {
	Account    string
	Stats      archive.Stats
	Downloaded int
	Existing   int
	Failed     int
	Elapsed    time.Duration
}

// PrintSummary writes per-collection counts
func PrintSummary(w io.Writer, s Summary) {
	fmt.Fprintf(w, "\n%s Archive of @%s\n", Green("✓"), s.Account)

	rows := []struct {
		label string
		count int
	}{
		{"tweets", s.Stats.Tweets},
		{"mentions", s.Stats.Mentions},
		{"responses", s.Stats.Responses},
		{"profiles", s.Stats.Profiles},
		{"followers", s.Stats.Followers},
		{"follows", s.Stats.Follows},
		{"lists", s.Stats.Lists},
		{"list members", s.Stats.Members},
		{"bookmarks", s.Stats.Bookmarks},
		{"likes", s.Stats.Likes},
		{"media files", s.Stats.Media},
	}
	for _, row := range rows {
		fmt.Fprintf(w, "  %s %-13s %d\n", Dim("•"), row.label, row.count)
	}

	if s.Downloaded > 0 || s.Existing > 0 || s.Failed > 0 {
		fmt.Fprintf(w, "  %s media this run: %d downloaded, %d already stored", Dim("•"), s.Downloaded, s.Existing)
		if s.Failed > 0 {
			fmt.Fprintf(w, ", %s", Red(fmt.Sprintf("%d failed", s.Failed)))
		}
		fmt.Fprintln(w)
	}
	if s.Elapsed > 0 {
		fmt.Fprintf(w, "  %s finished in %s\n", Dim("•"), formatDuration(s.Elapsed))
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}
