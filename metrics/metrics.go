// Package metrics exposes Prometheus collectors for runs and approvals. A nil
// *Metrics records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linkedin_publisher"

type Metrics struct {
	registry   *prometheus.Registry
	runs       *prometheus.CounterVec
	scores     prometheus.Histogram
	attempts   prometheus.Histogram
	images     *prometheus.CounterVec
	approvals  *prometheus.CounterVec
	notifyFail prometheus.Counter
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow runs by terminal outcome.",
		}, []string{"outcome"}),
		scores: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "critique_score",
			Help:      "Scores returned by the critic.",
			Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 95, 100},
		}),
		attempts: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "critique_attempts",
			Help:      "Critique calls per finished run.",
			Buckets:   prometheus.LinearBuckets(1, 2, 8),
		}),
		images: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "visual",
			Name:      "selections_total",
			Help:      "Image selections by source.",
		}, []string{"source"}),
		approvals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "approval",
			Name:      "requests_total",
			Help:      "Approval link executions by outcome.",
		}, []string{"outcome"}),
		notifyFail: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Notifications that could not be delivered.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) RunFinished(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	if attempts > 0 {
		m.attempts.Observe(float64(attempts))
	}
}

func (m *Metrics) CritiqueScored(score int) {
	if m == nil {
		return
	}
	m.scores.Observe(float64(score))
}

func (m *Metrics) ImageSelected(safeDefault bool) {
	if m == nil {
		return
	}
	source := "search"
	if safeDefault {
		source = "safe_default"
	}
	m.images.WithLabelValues(source).Inc()
}

func (m *Metrics) Approval(outcome string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(outcome).Inc()
}

func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.notifyFail.Inc()
}
