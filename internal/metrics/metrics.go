// Package metrics exposes Prometheus instruments for the narration pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusComplete = "complete"
	StatusFailed   = "failed"

	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Manager owns the pipeline metrics. A nil *Manager records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	runs          *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	movesPerGame  prometheus.Histogram
	cacheLookups  *prometheus.CounterVec
	inflight      prometheus.Gauge
}

type Option func(*Manager)

func WithNamespace(ns string) Option {
	return func(m *Manager) {
		if ns != "" {
			m.namespace = ns
		}
	}
}

func WithHistogramBuckets(b []float64) Option {
	return func(m *Manager) {
		if len(b) > 0 {
			m.buckets = b
		}
	}
}

// WithRegistry uses reg instead of a fresh private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(m *Manager) {
		if reg != nil {
			m.registry = reg
		}
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "narrator",
		buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60, 120, 300},
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "pipeline_runs_total",
		Help:      "Pipeline runs by final status",
	}, []string{"status"})
	m.stageFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "stage_failures_total",
		Help:      "Pipeline failures by stage",
	}, []string{"stage"})
	m.stageDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each pipeline stage",
		Buckets:   m.buckets,
	}, []string{"stage"})
	m.movesPerGame = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "moves_per_game",
		Help:      "Plies analyzed per game",
		Buckets:   prometheus.LinearBuckets(10, 20, 8),
	})
	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "narration_cache_total",
		Help:      "Narration response cache lookups by result",
	}, []string{"result"})
	m.inflight = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "pipelines_inflight",
		Help:      "Pipelines currently running",
	})
	return m
}

func (m *Manager) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Manager) RunFinished(status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
}

func (m *Manager) StageFailed(stage string) {
	if m == nil {
		return
	}
	m.stageFailures.WithLabelValues(stage).Inc()
}

func (m *Manager) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Manager) ObserveMoves(n int) {
	if m == nil {
		return
	}
	m.movesPerGame.Observe(float64(n))
}

func (m *Manager) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// Track marks one pipeline as running until the returned func is called.
func (m *Manager) Track() func() {
	if m == nil {
		return func() {}
	}
	m.inflight.Inc()
	return m.inflight.Dec
}
