package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"tweetvault/pkg/logger"
)

// Download outcomes
const (
	DownloadFetched   = "fetched"
	DownloadExisting  = "existing"
	DownloadSkipped   = "skipped"
	DownloadDiscarded = "discarded"
	DownloadFailed    = "failed"
)

// Metrics holds the collectors of a run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PagesFetched     *prometheus.CounterVec
	ItemsArchived    *prometheus.CounterVec
	PhaseDuration    *prometheus.HistogramVec
	PhaseErrors      *prometheus.CounterVec
	RateLimitWaits   *prometheus.CounterVec
	RateLimitSeconds *prometheus.CounterVec
	Downloads        *prometheus.CounterVec
	DownloadBytes    prometheus.Counter
	DownloadDuration prometheus.Histogram
	QueueDepth       prometheus.Gauge
}

// New registers every collector on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetvault_pages_fetched_total",
				Help: "Pages fetched per crawl phase",
			},
			[]string{"phase"},
		),
		ItemsArchived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetvault_items_archived_total",
				Help: "New items merged into the archive per crawl phase",
			},
			[]string{"phase"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tweetvault_phase_duration_seconds",
				Help:    "Wall time of a crawl phase",
				Buckets: prometheus.ExponentialBuckets(1, 4, 8),
			},
			[]string{"phase"},
		),
		PhaseErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetvault_phase_errors_total",
				Help: "Crawl phases aborted by an error",
			},
			[]string{"phase"},
		),
		RateLimitWaits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetvault_rate_limit_waits_total",
				Help: "Suspensions caused by an exhausted call budget",
			},
			[]string{"endpoint"},
		),
		RateLimitSeconds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetvault_rate_limit_wait_seconds_total",
				Help: "Time spent suspended by the rate limit governor",
			},
			[]string{"endpoint"},
		),
		Downloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tweetvault_downloads_total",
				Help: "Media instructions handled by outcome",
			},
			[]string{"result"},
		),
		DownloadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "tweetvault_download_bytes_total",
				Help: "Bytes of media downloaded",
			},
		),
		DownloadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "tweetvault_download_duration_seconds",
				Help:    "Time to fetch and store one media file",
				Buckets: prometheus.DefBuckets,
			},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "tweetvault_download_queue_depth",
				Help: "Media instructions submitted but not yet handled",
			},
		),
	}
}

// Registry returns the registry holding the collectors
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// PageFetched counts one page and the new items it contributed
func (m *Metrics) PageFetched(phase string, items int) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(phase).Inc()
	m.ItemsArchived.WithLabelValues(phase).Add(float64(items))
}

// PhaseDone records a finished phase
func (m *Metrics) PhaseDone(phase string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
	if err != nil {
		m.PhaseErrors.WithLabelValues(phase).Inc()
	}
}

// RateLimitWait records a governor suspension
func (m *Metrics) RateLimitWait(endpoint string, d time.Duration) {
	if m == nil {
		return
	}
	m.RateLimitWaits.WithLabelValues(endpoint).Inc()
	m.RateLimitSeconds.WithLabelValues(endpoint).Add(d.Seconds())
}

// Download records a handled media instruction
func (m *Metrics) Download(result string, bytes int, d time.Duration) {
	if m == nil {
		return
	}
	m.Downloads.WithLabelValues(result).Inc()
	if result == DownloadFetched {
		m.DownloadBytes.Add(float64(bytes))
		m.DownloadDuration.Observe(d.Seconds())
	}
}

// SetQueueDepth reports the number of pending media instructions
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, m *Metrics, log logger.Logger) error {
	if log == nil {
		log = logger.GetLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Metrics server starting")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Error("Metrics server failed")
		return err
	}
	return nil
}
