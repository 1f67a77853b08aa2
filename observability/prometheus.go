package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "runkit"

// PromMetrics records runnable invocations as Prometheus collectors.
type PromMetrics struct {
	gatherer    prometheus.Gatherer
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	active      *prometheus.GaugeVec
	errors      *prometheus.CounterVec
}

var _ Recorder = (*PromMetrics)(nil)

// NewPromMetrics registers the runnable collectors on reg. When reg is also a
// Gatherer (a *prometheus.Registry is both) Handler serves it; otherwise
// Handler serves the default gatherer.
func NewPromMetrics(reg prometheus.Registerer) (*PromMetrics, error) {
	m := &PromMetrics{
		gatherer: prometheus.DefaultGatherer,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "invocations_total",
			Help:      "Completed runnable invocations.",
		}, []string{"runnable", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: promNamespace,
			Name:      "invocation_duration_seconds",
			Help:      "Duration of runnable invocations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"runnable"}),
		active: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: promNamespace,
			Name:      "invocations_active",
			Help:      "Runnable invocations in flight.",
		}, []string{"runnable"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      "errors_total",
			Help:      "Runnable failures by error class.",
		}, []string{"runnable", "type"}),
	}
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}

	for _, c := range []prometheus.Collector{m.invocations, m.duration, m.active, m.errors} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering prometheus collector: %w", err)
		}
	}
	return m, nil
}

// InvocationStarted implements Recorder.
func (m *PromMetrics) InvocationStarted(_ context.Context, runnable string) {
	m.active.WithLabelValues(runnable).Inc()
}

// InvocationFinished implements Recorder.
func (m *PromMetrics) InvocationFinished(_ context.Context, runnable, status string, d time.Duration) {
	m.active.WithLabelValues(runnable).Dec()
	m.invocations.WithLabelValues(runnable, status).Inc()
	m.duration.WithLabelValues(runnable).Observe(d.Seconds())
}

// RecordError implements Recorder.
func (m *PromMetrics) RecordError(_ context.Context, runnable, errType string) {
	m.errors.WithLabelValues(runnable, errType).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *PromMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
