// Package metrics exposes the Prometheus instrumentation for both pipelines
// and the resilient API client.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the service registers.
type Metrics struct {
	attempts       *prometheus.CounterVec
	attemptLatency *prometheus.HistogramVec
	instanceUp     *prometheus.GaugeVec
	collected      *prometheus.CounterVec
	rejected       *prometheus.CounterVec
	rated          *prometheus.CounterVec
	scores         *prometheus.HistogramVec
	queueDepth     *prometheus.GaugeVec
}

// New registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "apiclient",
			Name:      "attempts_total",
			Help:      "HTTP attempts against upstream instances by outcome.",
		}, []string{"instance", "outcome"}),

		attemptLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clipscout",
			Subsystem: "apiclient",
			Name:      "attempt_duration_seconds",
			Help:      "Latency of HTTP attempts against upstream instances.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"instance"}),

		instanceUp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clipscout",
			Subsystem: "registry",
			Name:      "instance_up",
			Help:      "1 when the instance circuit is closed, 0 when open.",
		}, []string{"instance"}),

		collected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "collector",
			Name:      "candidates_total",
			Help:      "Validated candidates written to the raw queue by category.",
		}, []string{"category"}),

		rejected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "collector",
			Name:      "rejected_total",
			Help:      "Candidates rejected during validation by reason.",
		}, []string{"reason"}),

		rated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clipscout",
			Subsystem: "rater",
			Name:      "rated_total",
			Help:      "Rated videos by verdict (accepted or discarded).",
		}, []string{"verdict"}),

		scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clipscout",
			Subsystem: "rater",
			Name:      "score",
			Help:      "Final score distribution by category.",
			Buckets:   prometheus.LinearBuckets(0, 1, 11),
		}, []string{"category"}),

		queueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "clipscout",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Records currently stored per destination.",
		}, []string{"destination"}),
	}
}

// NewDefault registers on the default Prometheus registry.
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// ObserveAttempt implements the API client's attempt observer.
func (m *Metrics) ObserveAttempt(instanceURL, outcome string, latency time.Duration) {
	m.attempts.WithLabelValues(instanceURL, outcome).Inc()
	m.attemptLatency.WithLabelValues(instanceURL).Observe(latency.Seconds())
}

// SetInstanceUp records the circuit state of one instance.
func (m *Metrics) SetInstanceUp(instanceURL string, up bool) {
	v := 0.0
	if up {
		v = 1.0
	}
	m.instanceUp.WithLabelValues(instanceURL).Set(v)
}

// IncCollected counts one validated candidate.
func (m *Metrics) IncCollected(category string) {
	m.collected.WithLabelValues(category).Inc()
}

// IncRejected counts one validation rejection.
func (m *Metrics) IncRejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

// ObserveScore records one rating verdict and its final score.
func (m *Metrics) ObserveScore(category string, score float64, accepted bool) {
	verdict := "discarded"
	if accepted {
		verdict = "accepted"
	}
	m.rated.WithLabelValues(verdict).Inc()
	m.scores.WithLabelValues(category).Observe(score)
}

// SetQueueDepth records the current size of one destination.
func (m *Metrics) SetQueueDepth(destination string, depth int) {
	m.queueDepth.WithLabelValues(destination).Set(float64(depth))
}
