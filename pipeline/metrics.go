package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the per-stage pipeline counters.
type Metrics struct {
	Processed *prometheus.CounterVec
	Failed    *prometheus.CounterVec
	Skipped   *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

// NewMetrics creates and registers the pipeline metrics. A nil registerer
// creates unregistered metrics, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "stage_processed_total",
			Help:      "Stage handler completions by stage and status.",
		}, []string{"stage", "status"}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "stage_failed_total",
			Help:      "Stage handler failures by stage.",
		}, []string{"stage"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dealflow",
			Name:      "stage_skipped_total",
			Help:      "Stage handlers skipped because output already existed.",
		}, []string{"stage"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dealflow",
			Name:      "stage_duration_seconds",
			Help:      "Stage handler duration.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 11),
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.Processed, m.Failed, m.Skipped, m.Duration)
	}
	return m
}
