package ratelimit

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"tweetvault/pkg/logger"
)

// Snapshot is the call budget reported alongside an API response
type Snapshot struct {
	Remaining int
	Limit     int
	Reset     time.Time
}

// Known reports whether the response carried rate limit headers at all.
// The reset time is what a suspension needs, so it decides.
func (s Snapshot) Known() bool {
	return !s.Reset.IsZero()
}

// Exhausted reports whether the next call is expected to be rejected
func (s Snapshot) Exhausted() bool {
	return s.Known() && s.Remaining <= 1
}

// FromHeaders reads the x-rate-limit-* headers. Missing or malformed
// headers yield a zero Snapshot.
func FromHeaders(h http.Header) Snapshot {
	if h == nil {
		return Snapshot{}
	}

	// the limit is informational only
	limit, _ := strconv.Atoi(h.Get("x-rate-limit-limit"))
	remaining, err := strconv.Atoi(h.Get("x-rate-limit-remaining"))
	if err != nil {
		return Snapshot{}
	}
	reset, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64)
	if err != nil {
		return Snapshot{}
	}

	return Snapshot{
		Remaining: remaining,
		Limit:     limit,
		Reset:     time.Unix(reset, 0),
	}
}

// Config holds the governor's wait policy
type Config struct {
	SafetyMargin time.Duration
	MinWait      time.Duration
	MaxWait      time.Duration

	// Now and Sleep default to the wall clock and a ctx-aware timer
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultConfig returns the governor defaults
func DefaultConfig() Config {
	return Config{
		SafetyMargin: 10 * time.Second,
		MinWait:      time.Second,
		MaxWait:      16 * time.Minute,
	}
}

// Governor suspends the calling phase when an endpoint's budget is spent.
// It holds no per-endpoint state; every decision is made from the snapshot
// the caller just received.
type Governor struct {
	cfg    Config
	logger logger.Logger

	// OnWait is called before each suspension
	OnWait func(label string, wait time.Duration)
}

// NewGovernor creates a Governor, filling unset fields from DefaultConfig
func NewGovernor(cfg Config, log logger.Logger) *Governor {
	def := DefaultConfig()
	if cfg.SafetyMargin <= 0 {
		cfg.SafetyMargin = def.SafetyMargin
	}
	if cfg.MinWait <= 0 {
		cfg.MinWait = def.MinWait
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = def.MaxWait
	}
	if cfg.MaxWait < cfg.MinWait {
		cfg.MaxWait = cfg.MinWait
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Governor{cfg: cfg, logger: log.WithField("component", "governor")}
}

// Delay returns how long a caller holding snap must wait before its next
// call. Zero means proceed.
func (g *Governor) Delay(snap Snapshot) time.Duration {
	if !snap.Exhausted() {
		return 0
	}

	wait := snap.Reset.Sub(g.cfg.Now()) + g.cfg.SafetyMargin
	if wait < g.cfg.MinWait {
		wait = g.cfg.MinWait
	}
	if wait > g.cfg.MaxWait {
		wait = g.cfg.MaxWait
	}
	return wait
}

// Observe suspends until snap's window resets when the budget is exhausted.
// It returns ctx.Err() if the wait is interrupted.
func (g *Governor) Observe(ctx context.Context, snap Snapshot, label string) error {
	wait := g.Delay(snap)
	if wait == 0 {
		return nil
	}

	logger.LogRateLimit(g.logger, label, wait, snap.Reset)
	if g.OnWait != nil {
		g.OnWait(label, wait)
	}

	return g.cfg.Sleep(ctx, wait)
}

// Backoff suspends after a 429 that carried a reset time
func (g *Governor) Backoff(ctx context.Context, reset time.Time, label string) error {
	return g.Observe(ctx, Snapshot{Remaining: 0, Limit: 1, Reset: reset}, label)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
