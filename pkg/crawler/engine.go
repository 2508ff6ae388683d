package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"tweetvault/internal/downloader"
	"tweetvault/pkg/archive"
	"tweetvault/pkg/config"
	errs "tweetvault/pkg/errors"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/metrics"
	"tweetvault/pkg/ratelimit"
	"tweetvault/pkg/retry"
	"tweetvault/pkg/twitter"
)

// Phase names, in the order Run executes them
const (
	PhaseTweets    = "tweets"
	PhaseMentions  = "mentions"
	PhaseFollowers = "followers"
	PhaseFollows   = "follows"
	PhaseLists     = "lists"
	PhaseBookmarks = "bookmarks"
	PhaseLikes     = "likes"
)

const (
	boundarySuffix  = ":boundary"
	maxInspectDepth = 3
)

// EventKind distinguishes progress events
type EventKind int

const (
	// EventPhase is emitted when a phase starts
	EventPhase EventKind = iota
	// EventFinished is emitted once when every phase succeeded
	EventFinished
	// EventFailed is emitted once when at least one phase failed
	EventFailed
)

// Event reports crawl progress to the caller
type Event struct {
	Kind    EventKind
	Phase   string
	Archive *archive.Archive
	Err     error
}

// Options controls a single Run
type Options struct {
	// Sync stops each phase at the first already-archived item
	Sync bool
	// CustomSubject is set when the archived account is not the
	// authenticated one
	CustomSubject bool
	Crawl         config.CrawlConfig
	Retry         retry.Config
}

// Dependencies are the collaborators an Engine drives
type Dependencies struct {
	Client     twitter.Client
	Cache      *archive.Cache
	Documents  DocumentStore
	Positions  PositionStore
	Governor   *ratelimit.Governor
	Dispatcher MediaQueue
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// Engine runs the crawl phases for one archived account
type Engine struct {
	client     twitter.Client
	cache      *archive.Cache
	documents  DocumentStore
	positions  PositionStore
	governor   *ratelimit.Governor
	dispatcher MediaQueue
	metrics    *metrics.Metrics
	opts       Options
	runID      string
	logger     logger.Logger
}

// New creates an Engine
func New(deps Dependencies, opts Options) *Engine {
	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	gov := deps.Governor
	if gov == nil {
		gov = ratelimit.NewGovernor(ratelimit.DefaultConfig(), log)
	}
	if opts.Retry.MaxRetries == 0 && opts.Retry.InitialInterval == 0 {
		opts.Retry = retry.DefaultConfig()
	}

	runID := uuid.NewString()
	return &Engine{
		client:     deps.Client,
		cache:      deps.Cache,
		documents:  deps.Documents,
		positions:  deps.Positions,
		governor:   gov,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		opts:       opts,
		runID:      runID,
		logger: log.WithFields(map[string]interface{}{
			"component": "crawler",
			"run_id":    runID,
		}),
	}
}

// RunID identifies this engine's run in logs
func (e *Engine) RunID() string {
	return e.runID
}

type phase struct {
	name    string
	enabled bool
	run     func(ctx context.Context) error
}

func (e *Engine) phases() []phase {
	c := e.opts.Crawl
	own := !e.opts.CustomSubject

	return []phase{
		{PhaseTweets, c.Tweets, e.crawlTweets},
		{PhaseMentions, c.Mentions && own, e.timelinePhase(PhaseMentions, twitter.EndpointMentions, archive.CollectionMentions)},
		{PhaseFollowers, c.Followers, e.connectionsPhase(PhaseFollowers, twitter.EndpointFollowers, true)},
		{PhaseFollows, c.Follows, e.connectionsPhase(PhaseFollows, twitter.EndpointFollows, false)},
		{PhaseLists, c.Lists, e.crawlLists},
		{PhaseBookmarks, c.Bookmarks && own, e.timelinePhase(PhaseBookmarks, twitter.EndpointBookmarks, archive.CollectionBookmarks)},
		{PhaseLikes, c.Likes, e.timelinePhase(PhaseLikes, twitter.EndpointLikes, archive.CollectionLikes)},
	}
}

// Phases returns the names of the enabled phases in run order
func (e *Engine) Phases() []string {
	var names []string
	for _, p := range e.phases() {
		if p.enabled {
			names = append(names, p.name)
		}
	}
	return names
}

// Run executes every enabled phase in order. A failed phase is recorded and
// the remaining phases still run; cancellation of ctx aborts the run. The
// returned error joins every PhaseError.
//
// When events is non-nil the caller must keep receiving from it until Run
// returns.
func (e *Engine) Run(ctx context.Context, events chan<- Event) error {
	start := time.Now()
	e.logger.InfoWithFields("Crawl started", map[string]interface{}{
		"account_id": e.cache.ID(),
		"sync":       e.opts.Sync,
		"custom":     e.opts.CustomSubject,
	})

	var failures []error
	for _, p := range e.phases() {
		if !p.enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}

		emit(events, Event{Kind: EventPhase, Phase: p.name})
		logger.LogPhase(e.logger, p.name, "started", nil)

		began := time.Now()
		err := p.run(ctx)
		if drainErr := e.dispatcher.Drain(ctx); drainErr != nil && ctx.Err() == nil {
			e.logger.WithError(drainErr).WithField("phase", p.name).Warn("Media queue did not drain")
		}
		_ = e.save()
		e.metrics.PhaseDone(p.name, time.Since(began), err)

		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.LogPhase(e.logger.WithError(err), p.name, "failed", nil)
			failures = append(failures, &errs.PhaseError{Phase: p.name, Err: err})
			continue
		}
		logger.LogPhase(e.logger, p.name, "completed", map[string]interface{}{
			"duration": time.Since(began),
		})
	}

	if err := e.dispatcher.Finish(ctx); err != nil && !errors.Is(err, downloader.ErrClosed) {
		e.logger.WithError(err).Warn("Media queue did not finish cleanly")
	}
	_ = e.save()

	if err := ctx.Err(); err != nil {
		e.logger.WithField("elapsed", time.Since(start)).Warn("Crawl interrupted")
		emit(events, Event{Kind: EventFailed, Err: err})
		return err
	}

	if err := errors.Join(failures...); err != nil {
		e.logger.WithError(err).WithField("failed_phases", len(failures)).Error("Crawl finished with errors")
		emit(events, Event{Kind: EventFailed, Err: err})
		return err
	}

	snapshot, err := e.cache.Snapshot()
	if err != nil {
		e.logger.WithError(err).Warn("Failed to snapshot archive")
	}
	e.logger.InfoWithFields("Crawl finished", map[string]interface{}{
		"elapsed": time.Since(start),
	})
	emit(events, Event{Kind: EventFinished, Archive: snapshot})
	return nil
}

func emit(events chan<- Event, ev Event) {
	if events != nil {
		events <- ev
	}
}

// save persists the document. Failures are logged and returned; the run
// continues either way.
func (e *Engine) save() error {
	if e.documents == nil {
		return nil
	}
	if err := e.documents.Save(e.cache); err != nil {
		e.logger.WithError(err).Warn("Failed to save archive document")
		return err
	}
	return nil
}

// commitPage saves the document and only then records next as the resume
// position of key. An empty next records nothing. It reports whether the
// document holding the page is durable.
func (e *Engine) commitPage(key, next string) bool {
	if e.save() != nil {
		return false
	}
	if next != "" {
		e.setPosition(key, next)
	}
	return true
}

// finishPhase clears the resume keys of a completed phase. When the last
// save failed the keys stay, so the next run refetches from the last page
// that reached disk.
func (e *Engine) finishPhase(durable bool, keys ...string) {
	if !durable {
		e.logger.WithField("keys", keys).Warn("Archive not saved, keeping resume position")
		return
	}
	e.clearPosition(keys...)
}

func (e *Engine) position(key string) (string, bool) {
	return e.positions.Position(key)
}

// setPosition failures are logged by the store; the in-memory position is
// still used for the rest of the run
func (e *Engine) setPosition(key, position string) {
	_ = e.positions.SetPosition(key, position)
}

func (e *Engine) clearPosition(keys ...string) {
	for _, key := range keys {
		_ = e.positions.ClearPosition(key)
	}
}

func (e *Engine) cursorPosition(key string) int64 {
	saved, ok := e.position(key)
	if !ok {
		return twitter.BeginCursor
	}
	cursor, err := strconv.ParseInt(saved, 10, 64)
	if err != nil {
		e.logger.WithField("key", key).Warn("Ignoring malformed cursor position")
		return twitter.BeginCursor
	}
	return cursor
}

// mergePlan decides where a phase's new items land in its collection
type mergePlan struct {
	sync        bool
	boundary    int64
	offset      int
	boundaryKey string
}

// planMerge works out the merge mode of a phase from the persisted state.
// A phase interrupted mid-run finishes in the mode it started in: a saved
// boundary means an unfinished sync, a position without one means an
// unfinished full crawl.
func (e *Engine) planMerge(key string, resumed bool, ids []int64) mergePlan {
	plan := mergePlan{boundaryKey: key + boundarySuffix}
	saved, hasBoundary := e.position(plan.boundaryKey)

	switch {
	case resumed && hasBoundary:
		plan.sync = true
		boundary, err := strconv.ParseInt(saved, 10, 64)
		if err != nil {
			e.logger.WithField("key", plan.boundaryKey).Warn("Ignoring malformed boundary")
		}
		plan.boundary = boundary
	case resumed:
		plan.sync = false
	case e.opts.Sync:
		plan.sync = true
		if len(ids) > 0 {
			plan.boundary = ids[0]
			e.setPosition(plan.boundaryKey, strconv.FormatInt(plan.boundary, 10))
		} else if hasBoundary {
			e.clearPosition(plan.boundaryKey)
		}
	default:
		if hasBoundary {
			e.clearPosition(plan.boundaryKey)
		}
	}

	if !plan.sync {
		return plan
	}
	if plan.boundary == 0 {
		plan.offset = len(ids)
		return plan
	}
	for i, id := range ids {
		if id == plan.boundary {
			plan.offset = i
			return plan
		}
	}
	return plan
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// call runs op with retries. A rate limit error that carries a reset time
// is waited out through the governor before the next attempt.
func call[T any](ctx context.Context, e *Engine, label string, op func() (T, error)) (T, error) {
	cfg := e.opts.Retry
	cfg.Logger = e.logger
	cfg.RetryIf = func(err error) bool {
		var apiErr *errs.Error
		if errors.As(err, &apiErr) && apiErr.Type == errs.ErrorTypeRateLimit && !apiErr.ResetAt.IsZero() {
			if waitErr := e.governor.Backoff(ctx, apiErr.ResetAt, label); waitErr != nil {
				return false
			}
			return true
		}
		return retry.DefaultRetryIf(err)
	}

	return retry.DoWithResult(ctx, cfg, label, op)
}

func (e *Engine) fetchTweets(ctx context.Context, req twitter.PageRequest) (*twitter.TweetPage, error) {
	page, err := call(ctx, e, string(req.Endpoint), func() (*twitter.TweetPage, error) {
		return e.client.FetchTweets(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.Endpoint, err)
	}
	return page, nil
}
