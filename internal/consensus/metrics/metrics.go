// Package metrics exposes Prometheus instrumentation for the consensus core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the consensus core's Prometheus collectors.
type Metrics struct {
	ClaimsCreated  *prometheus.CounterVec
	VouchesCast    *prometheus.CounterVec
	ClaimsResolved *prometheus.CounterVec
	Settlements    prometheus.Counter

	StakeLocked   prometheus.Counter
	StakeSlashed  prometheus.Counter
	RewardsMinted prometheus.Counter

	ResolutionSupportBps prometheus.Histogram
}

// New registers and returns the consensus metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "knomee_claims_created_total",
			Help: "Claims created, by kind.",
		}, []string{"kind"}),
		VouchesCast: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "knomee_vouches_cast_total",
			Help: "Vouches cast, by side.",
		}, []string{"side"}),
		ClaimsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "knomee_claims_resolved_total",
			Help: "Claims that reached a terminal status, by status.",
		}, []string{"status"}),
		Settlements: promauto.NewCounter(prometheus.CounterOpts{
			Name: "knomee_settlements_total",
			Help: "Per-voucher settlements completed.",
		}),
		StakeLocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "knomee_stake_locked_total",
			Help: "Stake tokens moved into protocol custody.",
		}),
		StakeSlashed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "knomee_stake_slashed_total",
			Help: "Stake tokens burned from incorrect voters.",
		}),
		RewardsMinted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "knomee_rewards_minted_total",
			Help: "Reward tokens minted to correct voters.",
		}),
		ResolutionSupportBps: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "knomee_resolution_support_bps",
			Help:    "Weighted support (basis points) at the moment of resolution.",
			Buckets: []float64{5100, 6000, 6700, 7500, 8000, 9000, 9500, 10000},
		}),
	}
}

// SideLabel maps a vouch side to its metric label.
func SideLabel(supporting bool) string {
	if supporting {
		return "for"
	}
	return "against"
}
