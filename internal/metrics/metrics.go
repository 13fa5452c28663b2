// Package metrics exposes Prometheus instrumentation for clearing sagas.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts step attempts and saga outcomes.
type Recorder struct {
	stepAttempts *prometheus.CounterVec
	outcomes     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// NewRecorder registers the clearing collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		stepAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "step_attempts_total",
			Help:      "Saga step invocations by step and classified outcome.",
		}, []string{"step", "outcome"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clearing",
			Name:      "saga_outcomes_total",
			Help:      "Terminal saga states.",
		}, []string{"state"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clearing",
			Name:      "saga_duration_seconds",
			Help:      "Wall time from start to terminal state.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 20, 40},
		}, []string{"state"}),
	}
	if reg != nil {
		reg.MustRegister(r.stepAttempts, r.outcomes, r.duration)
	}
	return r
}

// StepAttempt records one invocation of step with its outcome.
func (r *Recorder) StepAttempt(step, outcome string) {
	if r == nil {
		return
	}
	r.stepAttempts.WithLabelValues(step, outcome).Inc()
}

// SagaFinished records a terminal state and its elapsed time.
func (r *Recorder) SagaFinished(state string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.outcomes.WithLabelValues(state).Inc()
	r.duration.WithLabelValues(state).Observe(elapsed.Seconds())
}
