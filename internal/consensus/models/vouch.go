package models

import (
	"time"

	"knomee/pkg/domain"
)

// Vouch is one voter's staked position on one claim. At most one exists per
// (claim, voucher) pair.
type Vouch struct {
	ClaimID domain.ClaimID
	Voucher domain.Address

	// Supporting is fixed at cast time and never mutated.
	Supporting bool

	// Weight is identityWeight(voucher) × stake, frozen at cast time. A later
	// tier change never rewrites a recorded vouch; recomputing would let
	// weightFor/weightAgainst decrease and break weight monotonicity.
	Weight uint64

	Stake uint64

	VouchedAt time.Time

	// RewardSettled flips exactly once when the voucher withdraws their
	// outcome. It is written before any token movement.
	RewardSettled bool

	// SettledAmount is the total transferred back to the voucher at
	// settlement (refund plus any minted reward), recorded for audit reads.
	SettledAmount uint64
}

// WonWith reports whether this vouch was on the winning side of a resolution.
func (v *Vouch) WonWith(approved bool) bool {
	return v.Supporting == approved
}
