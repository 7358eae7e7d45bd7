package metrics

import (
	"github.com/bnema/bottingctl/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Launch metrics
var (
	// LaunchesTotal counts launch attempts by outcome (success, rate_limited, auth_failed, error).
	LaunchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bottingctl_launches_total",
			Help: "Client launch attempts by outcome",
		},
		[]string{"outcome"},
	)

	LaunchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bottingctl_launch_duration_seconds",
			Help:    "Time from slot acquisition to a tracked client process",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 60},
		},
	)

	// TicketRetriesTotal counts ticket requests retried after a rate limit.
	TicketRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bottingctl_ticket_retries_total",
			Help: "Launch ticket requests retried after a rate limit",
		},
	)

	SlotWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bottingctl_launch_slot_wait_seconds",
			Help:    "Time spent waiting for the shared launch slot",
			Buckets: []float64{0, 1, 5, 10, 20, 40, 80, 160},
		},
	)
)

// Session metrics
var (
	// AccountsByPhase tracks how many session accounts sit in each phase.
	AccountsByPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bottingctl_accounts",
			Help: "Session accounts by phase",
		},
		[]string{"phase"},
	)

	ProcessDeathsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bottingctl_process_deaths_total",
			Help: "Tracked client processes found dead during a tick",
		},
	)

	// CircuitBreakerState tracks breaker state per component (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bottingctl_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// ObservePhases resets the phase gauge to the given counts.
func ObservePhases(counts map[domain.Phase]int) {
	for _, phase := range domain.Phases {
		AccountsByPhase.WithLabelValues(string(phase)).Set(float64(counts[phase]))
	}
}
