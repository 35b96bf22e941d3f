package workflow

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tjfontaine/replyloop/internal/domain"
)

const (
	outcomeApproved = "approved"
	outcomeFailed   = "failed"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	runs             *prometheus.CounterVec
	revisions        prometheus.Histogram
	approvalDuration *prometheus.HistogramVec
	modelDuration    *prometheus.HistogramVec
	stageErrors      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replyloop_runs_total",
				Help: "Total number of finished runs by outcome",
			},
			[]string{"outcome"},
		),
		revisions: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "replyloop_run_revisions",
				Help:    "Refinements per finished run",
				Buckets: prometheus.LinearBuckets(0, 1, 11),
			},
		),
		approvalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "replyloop_approval_duration_seconds",
				Help:    "Duration of approval round trips",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"decision"},
		),
		modelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "replyloop_model_call_duration_seconds",
				Help:    "Duration of completion calls",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		stageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replyloop_stage_errors_total",
				Help: "Run failures by state and error type",
			},
			[]string{"state", "type"},
		),
	}
	reg.MustRegister(m.runs, m.revisions, m.approvalDuration, m.modelDuration, m.stageErrors)
	return m
}

func (m *Metrics) runFinished(outcome string, revisions int) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
	m.revisions.Observe(float64(revisions))
}

func (m *Metrics) approvalObserved(fb *domain.Feedback, d time.Duration) {
	if m == nil {
		return
	}
	decision := "error"
	if fb != nil {
		decision = string(fb.Decision)
	}
	m.approvalDuration.WithLabelValues(decision).Observe(d.Seconds())
}

func (m *Metrics) modelCallObserved(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.modelDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) stageFailed(state State, errType domain.ErrorType) {
	if m == nil {
		return
	}
	if errType == "" {
		errType = "unknown"
	}
	m.stageErrors.WithLabelValues(string(state), string(errType)).Inc()
}
