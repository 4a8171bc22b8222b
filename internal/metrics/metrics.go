package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat_relay"

var (
	// RelayRequestsTotal counts chat requests by final outcome.
	RelayRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_requests_total",
			Help:      "Total number of chat relay requests",
		},
		[]string{"outcome"},
	)

	CompletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of completion gateway calls",
		},
		[]string{"provider", "outcome"},
	)

	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Latency of remote completion calls",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider"},
	)

	TurnsPersistedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_persisted_total",
			Help:      "Total number of turn writes by sender and result",
		},
		[]string{"sender", "result"},
	)
)

// Relay outcomes.
const (
	OutcomeReplied  = "replied"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Completion outcomes.
const (
	CompletionOK    = "ok"
	CompletionEmpty = "empty"
	CompletionError = "error"
)

func RecordRelay(outcome string) {
	RelayRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordCompletion records one gateway call and its latency.
func RecordCompletion(provider, outcome string, elapsed time.Duration) {
	CompletionsTotal.WithLabelValues(provider, outcome).Inc()
	CompletionDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
}

func RecordTurn(sender string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	TurnsPersistedTotal.WithLabelValues(sender, result).Inc()
}
