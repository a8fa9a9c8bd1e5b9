package orchestrator

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeCompleted = "completed"
	outcomeFailed    = "failed"

	attemptSuccess = "success"
	attemptError   = "error"
	attemptEmpty   = "empty"
)

// Metrics exposes Prometheus collectors that report orchestrator activity.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	titles        *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

// MustNewMetrics registers the orchestrator collectors with reg, reusing
// collectors that are already registered. Any other registration error
// panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &Metrics{
		titles: mustRegister(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codeforge",
				Subsystem: "orchestrator",
				Name:      "titles_total",
				Help:      "Titles processed, by outcome.",
			},
			[]string{"outcome"},
		)),
		attempts: mustRegister(reg, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "codeforge",
				Subsystem: "orchestrator",
				Name:      "generation_attempts_total",
				Help:      "Calls made to the generation service, by result.",
			},
			[]string{"result"},
		)),
		batchDuration: mustRegister(reg, prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "codeforge",
				Subsystem: "orchestrator",
				Name:      "batch_duration_seconds",
				Help:      "Wall time of one batch of concurrently processed titles.",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		)),
	}
}

func mustRegister[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) incTitle(outcome string) {
	if m == nil {
		return
	}
	m.titles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) incAttempt(result string) {
	if m == nil {
		return
	}
	m.attempts.WithLabelValues(result).Inc()
}

func (m *Metrics) observeBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}
