package utils

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector exposes scan and probe counters on a private registry so
// tests can create collectors without clashing on the default one.
type MetricsCollector struct {
	registry *prometheus.Registry

	scansTotal    *prometheus.CounterVec
	probeRuns     *prometheus.CounterVec
	probeDuration *prometheus.HistogramVec
	findingsTotal *prometheus.CounterVec
	overallScore  prometheus.Histogram
}

func NewMetricsCollector(includeRuntime bool) *MetricsCollector {
	registry := prometheus.NewRegistry()
	m := &MetricsCollector{
		registry: registry,
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprobe",
			Name:      "scans_total",
			Help:      "Scans executed, labeled by terminal status.",
		}, []string{"status"}),
		probeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprobe",
			Name:      "probe_runs_total",
			Help:      "Probe executions, labeled by probe and outcome.",
		}, []string{"probe", "outcome"}),
		probeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskprobe",
			Name:      "probe_duration_seconds",
			Help:      "Probe wall time.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"probe"}),
		findingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskprobe",
			Name:      "findings_total",
			Help:      "Findings produced, labeled by severity.",
		}, []string{"severity"}),
		overallScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskprobe",
			Name:      "overall_score",
			Help:      "Distribution of overall risk scores.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		}),
	}

	registry.MustRegister(m.scansTotal, m.probeRuns, m.probeDuration, m.findingsTotal, m.overallScore)
	if includeRuntime {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

func (m *MetricsCollector) ObserveScan(status string) {
	m.scansTotal.WithLabelValues(status).Inc()
}

func (m *MetricsCollector) ObserveProbe(probe, outcome string, elapsed time.Duration) {
	m.probeRuns.WithLabelValues(probe, outcome).Inc()
	m.probeDuration.WithLabelValues(probe).Observe(elapsed.Seconds())
}

func (m *MetricsCollector) ObserveFinding(severity string) {
	m.findingsTotal.WithLabelValues(severity).Inc()
}

func (m *MetricsCollector) ObserveScore(score int) {
	m.overallScore.Observe(float64(score))
}

// Handler serves the registry in Prometheus exposition format.
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
