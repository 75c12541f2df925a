package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	GenerationAttempts *prometheus.CounterVec
	CreditsDebited     prometheus.Counter
	CreditsRefunded    prometheus.Counter
	RefundFailures     prometheus.Counter
	RenderDuration     prometheus.Histogram
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics against a specific registerer; tests pass a
// fresh registry to avoid duplicate registration.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		GenerationAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cardgen_generation_attempts_total",
			Help: "Generation attempts by terminal result (success or failure code)",
		}, []string{"result"}),
		CreditsDebited: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardgen_credits_debited_total",
			Help: "Total credits debited for generation attempts",
		}),
		CreditsRefunded: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardgen_credits_refunded_total",
			Help: "Total credits refunded after post-debit failures",
		}),
		RefundFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "cardgen_refund_failures_total",
			Help: "Compensating credits that failed, leaving the ledger inconsistent",
		}),
		RenderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cardgen_render_duration_seconds",
			Help:    "Latency of the external barcode render call",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// IncGenerationAttempts counts one terminal attempt outcome.
func (m *Metrics) IncGenerationAttempts(result string) {
	m.GenerationAttempts.WithLabelValues(result).Inc()
}

// AddCreditsDebited accumulates debited credits.
func (m *Metrics) AddCreditsDebited(amount float64) {
	m.CreditsDebited.Add(amount)
}

// AddCreditsRefunded accumulates refunded credits.
func (m *Metrics) AddCreditsRefunded(amount float64) {
	m.CreditsRefunded.Add(amount)
}

// IncRefundFailures counts one failed compensation.
func (m *Metrics) IncRefundFailures() {
	m.RefundFailures.Inc()
}

// ObserveRenderDuration records one render round-trip.
func (m *Metrics) ObserveRenderDuration(d time.Duration) {
	m.RenderDuration.Observe(d.Seconds())
}
