package downloader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"tweetvault/pkg/logger"
	"tweetvault/pkg/metrics"
	"tweetvault/pkg/ratelimit"
	"tweetvault/pkg/storage"
)

// ErrClosed is returned by Submit after Finish
var ErrClosed = errors.New("dispatcher is finished")

// ErrStopped is returned by Drain when the workers exited before the
// queue emptied
var ErrStopped = errors.New("dispatcher workers stopped")

// Fetcher downloads media bytes
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// MediaIndex is the URL to artifact map of the archive
type MediaIndex interface {
	MediaRef(url string) (string, bool)
	SetMedia(url, ref string)
}

// Options configures a Dispatcher
type Options struct {
	Workers   int
	QueueSize int
	// Enabled false discards every instruction without network activity
	Enabled bool
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
	Logger  logger.Logger
}

// Stats counts handled instructions by outcome
type Stats struct {
	Fetched   int64
	Existing  int64
	Skipped   int64
	Discarded int64
	Failed    int64
}

// Dispatcher fetches every unique media URL at most once per run. Crawler
// phases Submit instructions into a bounded queue drained by a fixed pool
// of workers.
type Dispatcher struct {
	opts    Options
	fetcher Fetcher
	store   storage.ArtifactStore
	index   MediaIndex
	logger  logger.Logger

	queue    chan Instruction
	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
	group    *errgroup.Group

	mu       sync.Mutex
	claimed  map[string]bool
	pending  int
	idle     chan struct{}
	finished bool

	fetched, existing, skipped, discarded, failed atomic.Int64
}

// New creates a Dispatcher. Call Start before submitting.
func New(fetcher Fetcher, store storage.ArtifactStore, index MediaIndex, opts Options) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = opts.Workers * 2
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	idle := make(chan struct{})
	close(idle)

	return &Dispatcher{
		opts:    opts,
		fetcher: fetcher,
		store:   store,
		index:   index,
		logger:  opts.Logger.WithField("component", "dispatcher"),
		queue:   make(chan Instruction, opts.QueueSize),
		stop:    make(chan struct{}),
		exited:  make(chan struct{}),
		claimed: make(map[string]bool),
		idle:    idle,
	}
}

// Start launches the workers. They run until Finish or until ctx is done.
func (d *Dispatcher) Start(ctx context.Context) {
	logger.LogComponentStart(d.logger, "dispatcher", map[string]interface{}{
		"workers":    d.opts.Workers,
		"queue_size": d.opts.QueueSize,
		"enabled":    d.opts.Enabled,
	})

	group, gctx := errgroup.WithContext(ctx)
	d.group = group
	for i := 0; i < d.opts.Workers; i++ {
		id := i
		group.Go(func() error {
			return d.worker(gctx, id)
		})
	}

	go func() {
		group.Wait()
		close(d.exited)
	}()
}

// Submit enqueues ins, blocking while the queue is full. Instructions for
// URLs already archived or already submitted in this run are dropped.
func (d *Dispatcher) Submit(ctx context.Context, ins Instruction) error {
	if _, ok := ins.(Done); ok {
		return d.Finish(ctx)
	}

	source, _, ok := target(ins)
	if !ok || source == "" {
		return nil
	}

	if _, ok := d.index.MediaRef(source); ok {
		d.skipped.Add(1)
		d.opts.Metrics.Download(metrics.DownloadSkipped, 0, 0)
		return nil
	}

	d.mu.Lock()
	if d.finished {
		d.mu.Unlock()
		return ErrClosed
	}
	if d.claimed[source] {
		d.mu.Unlock()
		return nil
	}
	d.claimed[source] = true
	d.addPending(1)
	d.mu.Unlock()

	select {
	case d.queue <- ins:
		return nil
	case <-ctx.Done():
		d.release(source)
		return ctx.Err()
	case <-d.exited:
		d.release(source)
		return ErrStopped
	}
}

func (d *Dispatcher) release(source string) {
	d.mu.Lock()
	delete(d.claimed, source)
	d.addPending(-1)
	d.mu.Unlock()
}

// addPending must be called with mu held
func (d *Dispatcher) addPending(delta int) {
	if d.pending == 0 && delta > 0 {
		d.idle = make(chan struct{})
	}
	d.pending += delta
	if d.pending == 0 && delta < 0 {
		close(d.idle)
	}
	d.opts.Metrics.SetQueueDepth(d.pending)
}

// Pending returns the number of submitted instructions not yet handled
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Drain waits until every submitted instruction has been handled
func (d *Dispatcher) Drain(ctx context.Context) error {
	d.mu.Lock()
	idle := d.idle
	pending := d.pending
	d.mu.Unlock()

	if pending > 0 {
		d.logger.DebugWithFields("Draining media queue", map[string]interface{}{
			"pending": pending,
		})
	}

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.exited:
		select {
		case <-idle:
			return nil
		default:
			return ErrStopped
		}
	}
}

// Finish pushes Done, lets the workers drain what is queued and waits for
// them to exit. Later calls are no-ops.
func (d *Dispatcher) Finish(ctx context.Context) error {
	d.mu.Lock()
	if d.finished {
		d.mu.Unlock()
		return nil
	}
	d.finished = true
	d.mu.Unlock()

	if d.group == nil {
		return nil
	}

	select {
	case d.queue <- Done{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-d.exited:
	}

	err := d.group.Wait()
	s := d.Stats()
	logger.LogComponentStop(d.logger, "dispatcher", "finished")
	d.logger.InfoWithFields("Media downloads complete", map[string]interface{}{
		"fetched":   s.Fetched,
		"existing":  s.Existing,
		"skipped":   s.Skipped,
		"discarded": s.Discarded,
		"failed":    s.Failed,
	})
	return err
}

// Stats returns the outcome counters so far
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Fetched:   d.fetched.Load(),
		Existing:  d.existing.Load(),
		Skipped:   d.skipped.Load(),
		Discarded: d.discarded.Load(),
		Failed:    d.failed.Load(),
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) error {
	log := d.logger.WithField("worker_id", id)
	log.Debug("Worker started")

	for {
		select {
		case ins := <-d.queue:
			if _, ok := ins.(Done); ok {
				d.stopOnce.Do(func() { close(d.stop) })
				d.drainQueue(ctx, log)
				return nil
			}
			d.handle(ctx, log, ins)
		case <-d.stop:
			d.drainQueue(ctx, log)
			return nil
		case <-ctx.Done():
			log.Debug("Worker stopping - context cancelled")
			return nil
		}
	}
}

// drainQueue handles whatever is still buffered after Done
func (d *Dispatcher) drainQueue(ctx context.Context, log logger.Logger) {
	for {
		select {
		case ins := <-d.queue:
			if _, ok := ins.(Done); ok {
				continue
			}
			d.handle(ctx, log, ins)
		default:
			log.Debug("Worker stopping - queue drained")
			return
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, log logger.Logger, ins Instruction) {
	source, name, _ := target(ins)
	defer func() {
		d.mu.Lock()
		d.addPending(-1)
		d.mu.Unlock()
	}()

	if !d.opts.Enabled {
		d.discarded.Add(1)
		d.opts.Metrics.Download(metrics.DownloadDiscarded, 0, 0)
		return
	}

	if _, ok := d.index.MediaRef(source); ok {
		d.skipped.Add(1)
		d.opts.Metrics.Download(metrics.DownloadSkipped, 0, 0)
		return
	}

	start := time.Now()
	exists, err := d.store.Exists(ctx, name)
	if err != nil {
		log.WithError(err).WithField("artifact", name).Warn("Failed to check artifact, fetching anyway")
	}
	if exists {
		ref := d.store.Ref(name)
		d.index.SetMedia(source, ref)
		d.existing.Add(1)
		d.opts.Metrics.Download(metrics.DownloadExisting, 0, 0)
		logger.LogDownload(log, source, ref, true, nil)
		return
	}

	if d.opts.Limiter != nil {
		if err := d.opts.Limiter.Wait(ctx); err != nil {
			d.fail(log, source, err)
			return
		}
	}

	data, contentType, err := d.fetcher.Fetch(ctx, source)
	if err != nil {
		d.fail(log, source, err)
		return
	}

	ref, err := d.store.Put(ctx, name, data, contentType)
	if err != nil {
		d.fail(log, source, err)
		return
	}

	d.index.SetMedia(source, ref)
	d.fetched.Add(1)
	d.opts.Metrics.Download(metrics.DownloadFetched, len(data), time.Since(start))
	logger.LogDownload(log, source, ref, false, nil)
}

// fail leaves the URL claimed so it is not retried in this run; a later
// run retries it because the archive has no mapping for it
func (d *Dispatcher) fail(log logger.Logger, source string, err error) {
	d.failed.Add(1)
	d.opts.Metrics.Download(metrics.DownloadFailed, 0, 0)
	logger.LogDownload(log, source, "", false, err)
}
