package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the engine's operational counters. All collectors are
// registered on the given registerer; passing prometheus.DefaultRegisterer
// surfaces them on the server's /metrics endpoint.
type Metrics struct {
	Trials        prometheus.Counter
	Truncated     prometheus.Counter
	Resamples     prometheus.Counter
	TrialDuration prometheus.Histogram
}

// NewMetrics builds and registers the engine collectors. A nil registerer
// yields unregistered collectors, which is the default for embedded use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Trials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtune",
			Subsystem: "engine",
			Name:      "trials_total",
			Help:      "Number of recorded trials.",
		}),
		Truncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtune",
			Subsystem: "engine",
			Name:      "truncated_trials_total",
			Help:      "Number of trials cut short by the pruning controller.",
		}),
		Resamples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "gridtune",
			Subsystem: "engine",
			Name:      "resamples_total",
			Help:      "Number of raw evaluations beyond the first per trial.",
		}),
		TrialDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gridtune",
			Subsystem: "engine",
			Name:      "trial_duration_seconds",
			Help:      "Wall-clock duration of one trial including resampling.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Trials, m.Truncated, m.Resamples, m.TrialDuration)
	}
	return m
}
