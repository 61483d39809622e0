package metrics

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/accrual"
	"github.com/parivartanx/dpbazaar-v2-backend-sub002/internal/model"
)

const namespace = "dpbazaar"

// Metrics exposes reward run activity to Prometheus. It implements
// accrual.Observer.
type Metrics struct {
	credits        *prometheus.CounterVec
	creditedAmount *prometheus.CounterVec
	failures       *prometheus.CounterVec
	outcomes       *prometheus.CounterVec
	runDuration    prometheus.Histogram
	lastRun        prometheus.Gauge
}

var _ accrual.Observer = (*Metrics)(nil)

// MustNewMetrics registers the reward collectors with reg and panics on a
// registration conflict.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		credits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "credits_total",
				Help:      "Reward credits journaled, by purse kind.",
			},
			[]string{"purse_kind"},
		),
		creditedAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "credited_amount_total",
				Help:      "Sum of reward credits, by purse kind.",
			},
			[]string{"purse_kind"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "failures_total",
				Help:      "Subscriptions that could not be credited, by reason.",
			},
			[]string{"reason"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "run_subscriptions_total",
				Help:      "Subscriptions handled by reward runs, by outcome.",
			},
			[]string{"outcome"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "run_duration_seconds",
				Help:      "Wall time of a reward run.",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
		),
		lastRun: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "rewards",
				Name:      "last_run_timestamp_seconds",
				Help:      "Unix time the last reward run completed.",
			},
		),
	}

	reg.MustRegister(m.credits, m.creditedAmount, m.failures, m.outcomes, m.runDuration, m.lastRun)
	return m
}

func (m *Metrics) CreditApplied(entry model.LedgerEntry, sub model.Subscription) {
	kind := string(sub.PurseKind)
	m.credits.WithLabelValues(kind).Inc()
	amount, _ := entry.Amount.Float64()
	m.creditedAmount.WithLabelValues(kind).Add(amount)
}

func (m *Metrics) CreditFailed(_ uuid.UUID, err error) {
	m.failures.WithLabelValues(accrual.FailureReason(err)).Inc()
}

func (m *Metrics) RunCompleted(report accrual.RunReport, elapsed time.Duration) {
	m.runDuration.Observe(elapsed.Seconds())
	m.lastRun.SetToCurrentTime()

	m.outcomes.WithLabelValues("processed").Add(float64(report.Processed))
	m.outcomes.WithLabelValues("duplicate").Add(float64(report.Duplicates))
	m.outcomes.WithLabelValues("skipped").Add(float64(report.Skipped))
	m.outcomes.WithLabelValues("aborted").Add(float64(report.Aborted))
	m.outcomes.WithLabelValues("failed").Add(float64(len(report.Failures)))
	if report.Err != nil {
		m.failures.WithLabelValues("list").Inc()
	}
}
