// Package metrics exposes interview activity as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"interviewer/session"
	"interviewer/speech"
)

const namespace = "interviewer"

// Metrics implements session.Observer.
type Metrics struct {
	StateTransitions *prometheus.CounterVec
	CurrentState     *prometheus.GaugeVec
	Turns            *prometheus.CounterVec
	RequestLatency   *prometheus.HistogramVec
	RequestErrors    *prometheus.CounterVec
	Playbacks        *prometheus.CounterVec
	ActionsRejected  *prometheus.CounterVec
	SessionsEnded    *prometheus.CounterVec
	SessionDuration  prometheus.Histogram
	HandoffPublish   *prometheus.CounterVec
	HandoffLatency   prometheus.Histogram
}

// New registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StateTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Controller state transitions",
		}, []string{"from", "to"}),
		CurrentState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "state",
			Help:      "1 for the controller's current state",
		}, []string{"state"}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Turns appended to the session",
		}, []string{"speaker"}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Backend request latency",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"kind"}),
		RequestErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_errors_total",
			Help:      "Failed backend requests",
		}, []string{"kind"}),
		Playbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "playbacks_total",
			Help:      "Finished interviewer utterances by result",
		}, []string{"result"}),
		ActionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Candidate actions refused in the current state",
		}, []string{"action", "state"}),
		SessionsEnded: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions ended by reason",
		}, []string{"reason"}),
		SessionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Interview clock at the end of a session",
			Buckets:   prometheus.ExponentialBuckets(30, 2, 8),
		}),
		HandoffPublish: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handoff_publish_total",
			Help:      "Session summaries published for feedback",
		}, []string{"status"}),
		HandoffLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "handoff_publish_duration_seconds",
			Help:      "Latency of publishing a session summary",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) StateChanged(from, to session.State) {
	m.StateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	m.CurrentState.WithLabelValues(from.String()).Set(0)
	m.CurrentState.WithLabelValues(to.String()).Set(1)
}

func (m *Metrics) TurnAppended(t session.Turn) {
	m.Turns.WithLabelValues(t.Speaker.String()).Inc()
}

func (m *Metrics) RequestFinished(kind string, d time.Duration, err error) {
	m.RequestLatency.WithLabelValues(kind).Observe(d.Seconds())
	if err != nil {
		m.RequestErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) PlaybackFinished(err error) {
	result := "ok"
	switch {
	case errors.Is(err, speech.ErrCanceled):
		result = "canceled"
	case err != nil:
		result = "error"
	}
	m.Playbacks.WithLabelValues(result).Inc()
}

func (m *Metrics) ActionRejected(a session.Action, s session.State) {
	m.ActionsRejected.WithLabelValues(a.String(), s.String()).Inc()
}

func (m *Metrics) SessionEnded(reason string, elapsed, _ int) {
	m.SessionsEnded.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(float64(elapsed))
}

// RecordHandoff records one summary publish.
func (m *Metrics) RecordHandoff(err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.HandoffPublish.WithLabelValues(status).Inc()
	m.HandoffLatency.Observe(d.Seconds())
}
