// internal/monitoring/metrics.go
package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/valpere/ChartMiner/internal/utils"
)

// Metrics aggregates the pipeline's Prometheus instruments. All methods are
// safe for concurrent use; a nil *Metrics is a no-op so callers never need
// to branch on whether metrics are enabled.
type Metrics struct {
	registry *prometheus.Registry

	fetchAttempts  *prometheus.CounterVec
	fetchResults   *prometheus.CounterVec
	fetchRetries   prometheus.Counter
	fetchInFlight  prometheus.Gauge
	fetchDuration  *prometheus.HistogramVec
	tierHits       *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	recordsFlagged *prometheus.CounterVec
	checkpoints    prometheus.Counter
}

// NewMetrics builds and registers the instrument set on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		fetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartminer",
			Name:      "fetch_attempts_total",
			Help:      "Fetch attempts by category, including retries.",
		}, []string{"category"}),
		fetchResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartminer",
			Name:      "fetch_results_total",
			Help:      "Terminal fetch outcomes by status.",
		}, []string{"status"}),
		fetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chartminer",
			Name:      "fetch_retries_total",
			Help:      "Retries scheduled after transient failures.",
		}),
		fetchInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "chartminer",
			Name:      "fetch_in_flight",
			Help:      "Fetches currently being worked.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chartminer",
			Name:      "fetch_duration_seconds",
			Help:      "Wall time of a single fetch attempt.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}, []string{"category"}),
		tierHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartminer",
			Name:      "tier_hits_total",
			Help:      "Which extraction tier produced the accepted record.",
		}, []string{"tier"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chartminer",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		recordsFlagged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chartminer",
			Name:      "records_flagged_total",
			Help:      "Anomaly flags applied, by flag name.",
		}, []string{"flag"}),
		checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "chartminer",
			Name:      "checkpoints_written_total",
			Help:      "Autosave checkpoints persisted.",
		}),
	}

	registry.MustRegister(
		m.fetchAttempts, m.fetchResults, m.fetchRetries, m.fetchInFlight,
		m.fetchDuration, m.tierHits, m.stageDuration, m.recordsFlagged,
		m.checkpoints,
	)
	return m
}

func (m *Metrics) FetchAttempt(category string) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(category).Inc()
}

func (m *Metrics) FetchResult(status string) {
	if m == nil {
		return
	}
	m.fetchResults.WithLabelValues(status).Inc()
}

func (m *Metrics) Retry() {
	if m == nil {
		return
	}
	m.fetchRetries.Inc()
}

func (m *Metrics) InFlight(delta float64) {
	if m == nil {
		return
	}
	m.fetchInFlight.Add(delta)
}

func (m *Metrics) ObserveFetch(category string, d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.WithLabelValues(category).Observe(d.Seconds())
}

func (m *Metrics) TierHit(tier string) {
	if m == nil {
		return
	}
	m.tierHits.WithLabelValues(tier).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordFlagged(flag string) {
	if m == nil {
		return
	}
	m.recordsFlagged.WithLabelValues(flag).Inc()
}

func (m *Metrics) CheckpointWritten() {
	if m == nil {
		return
	}
	m.checkpoints.Inc()
}

// Server exposes the registry over HTTP for scraping.
type Server struct {
	srv    *http.Server
	logger utils.Logger
}

// NewServer wires the metrics handler at /metrics on the given address
// (for example ":9090").
func NewServer(m *Metrics, addr string, logger utils.Logger) *Server {
	if logger == nil {
		logger = utils.NewComponentLogger("metrics")
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background until Stop or listener failure.
func (s *Server) Start() {
	go func() {
		s.logger.Infof("metrics listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("metrics server: %v", err)
		}
	}()
}

// Stop shuts the server down, honoring the context deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
