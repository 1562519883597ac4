package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AuthAttempts records authentication attempts by result (success|failure).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equipped_auth_attempts_total",
			Help: "Total number of authentication attempts",
		},
		[]string{"result"},
	)

	// AccessChecks counts role gate evaluations and their outcome (allowed|denied).
	AccessChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equipped_access_checks_total",
			Help: "Total number of role access checks",
		},
		[]string{"action", "result"},
	)

	// InvitationTransitions counts invitation lifecycle transitions by outcome.
	InvitationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "equipped_invitation_transitions_total",
			Help: "Total number of invitation lifecycle transitions",
		},
		[]string{"transition", "result"},
	)

	// ReaperExpiredFound tracks how many expired invitations each reaper run observed.
	ReaperExpiredFound = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "equipped_reaper_expired_invitations",
			Help: "Expired pending invitations found by the latest reaper run",
		},
	)

	// ReaperRunDuration measures reaper scan durations.
	ReaperRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "equipped_reaper_run_duration_seconds",
			Help:    "Duration of invitation expiry reaper runs",
			Buckets: prometheus.DefBuckets,
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "equipped_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
