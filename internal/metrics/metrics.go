// Package metrics exposes prometheus instrumentation for the validation
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	verdicts      *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	stageFaults   *prometheus.CounterVec
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photocheck_verdicts_total",
			Help: "Validation verdicts by mode and status.",
		}, []string{"mode", "status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "photocheck_stage_duration_seconds",
			Help:    "Wall time per validation stage.",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),
		stageFaults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "photocheck_stage_faults_total",
			Help: "Stage executions that failed with an execution error.",
		}, []string{"stage"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photocheck_verdict_cache_hits_total",
			Help: "Verdicts served from the redis cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "photocheck_verdict_cache_misses_total",
			Help: "Validation requests not found in the redis cache.",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.verdicts,
		m.stageDuration,
		m.stageFaults,
		m.cacheHits,
		m.cacheMisses,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordVerdict(mode, status string) {
	m.verdicts.WithLabelValues(mode, status).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordStageFault(stage string) {
	m.stageFaults.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordCacheHit()  { m.cacheHits.Inc() }
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Inc() }
