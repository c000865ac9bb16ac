// Package telemetry exposes the Prometheus metrics for the analysis
// pipeline and the HTTP surface.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector the service registers. A single
// instance is created at startup and shared.
type Metrics struct {
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	StageDuration  *prometheus.HistogramVec
	StageDegraded  *prometheus.CounterVec
	ProviderErrors *prometheus.CounterVec
}

// New builds the metric set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echomarket",
			Name:      "analysis_runs_total",
			Help:      "Completed analysis runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "echomarket",
			Name:      "analysis_run_duration_seconds",
			Help:      "Wall time of a full analysis run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "echomarket",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		StageDegraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echomarket",
			Name:      "stage_degraded_total",
			Help:      "Stages that fell back to their default output.",
		}, []string{"stage"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "echomarket",
			Name:      "provider_errors_total",
			Help:      "Upstream provider call failures.",
		}, []string{"provider"}),
	}
	reg.MustRegister(m.RunsTotal, m.RunDuration, m.StageDuration, m.StageDegraded, m.ProviderErrors)
	return m
}

// ObserveStage records one stage execution.
func (m *Metrics) ObserveStage(stage string, start time.Time, degraded bool) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if degraded {
		m.StageDegraded.WithLabelValues(stage).Inc()
	}
}

// ObserveProviderFailures counts failed upstream calls per provider.
func (m *Metrics) ObserveProviderFailures(providers []string) {
	if m == nil {
		return
	}
	for _, p := range providers {
		m.ProviderErrors.WithLabelValues(p).Inc()
	}
}

// ObserveRun records one full pipeline run.
func (m *Metrics) ObserveRun(start time.Time, outcome string) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(time.Since(start).Seconds())
	m.RunsTotal.WithLabelValues(outcome).Inc()
}
