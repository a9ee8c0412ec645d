package businessflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	claimResultClaimed    = "claimed"
	claimResultEmpty      = "empty"
	claimResultContention = "contention"
	claimResultError      = "error"
)

var (
	bottlesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftbottle_bottles_created_total",
			Help: "Total number of bottles thrown",
		},
	)

	// Claim outcomes partitioned by result: claimed, empty, contention, error
	bottleClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftbottle_claims_total",
			Help: "Total number of pick requests by outcome",
		},
		[]string{"result"},
	)

	// Conditional updates that matched nothing because another request won the bottle
	bottleClaimLostRacesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "driftbottle_claim_lost_races_total",
			Help: "Total number of candidate bottles lost to a concurrent pick",
		},
	)

	bottleClaimRounds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "driftbottle_claim_rounds",
			Help:    "Sampling rounds needed for a successful pick",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 20},
		},
	)

	// Last observed number of unpicked bottles
	activeBottlesGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "driftbottle_active_bottles",
			Help: "Number of unpicked bottles at the last count",
		},
	)

	activeCountCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "driftbottle_active_count_cache_total",
			Help: "Active bottle count cache operations by outcome: hit, miss, stale, error",
		},
		[]string{"outcome"},
	)
)
