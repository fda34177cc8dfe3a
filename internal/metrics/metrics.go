// Package metrics exposes Prometheus counters for OAuth flow outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FlowsStarted counts authorization flows initiated per provider.
	FlowsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_flows_started_total",
			Help: "The total number of OAuth flows initiated.",
		},
		[]string{"provider"},
	)

	// FlowsCompleted counts flows that exchanged a code for a token.
	FlowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_flows_completed_total",
			Help: "The total number of OAuth flows completed successfully.",
		},
		[]string{"provider"},
	)

	// FlowsFailed counts flows that failed, by failure stage.
	FlowsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_flows_failed_total",
			Help: "The total number of OAuth flows that failed.",
		},
		[]string{"provider", "stage"},
	)

	// ProfileFetches counts profile lookups per provider and outcome.
	ProfileFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authgate_profile_fetches_total",
			Help: "The total number of provider profile fetches.",
		},
		[]string{"provider", "outcome"},
	)
)
