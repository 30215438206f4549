// Package models defines the claim and vouch records owned by the consensus
// core. All threshold and slash-rate decisions hang off ClaimKind so the three
// claim types' divergent rules stay in one place.
package models

import (
	"fmt"
	"time"

	"knomee/internal/governance"
	"knomee/pkg/domain"
)

// ClaimKind is the type of identity fact a claim proposes.
type ClaimKind string

const (
	// KindLinkToPrimary links a secondary address under a Primary on a platform.
	KindLinkToPrimary ClaimKind = "link_to_primary"
	// KindNewPrimary promotes an address to verified-unique-human.
	KindNewPrimary ClaimKind = "new_primary"
	// KindDuplicateFlag accuses two Primaries of being the same human.
	KindDuplicateFlag ClaimKind = "duplicate_flag"
)

// ParseClaimKind validates a wire-form kind.
func ParseClaimKind(s string) (ClaimKind, error) {
	switch k := ClaimKind(s); k {
	case KindLinkToPrimary, KindNewPrimary, KindDuplicateFlag:
		return k, nil
	default:
		return "", fmt.Errorf("unknown claim kind: %q", s)
	}
}

func (k ClaimKind) String() string { return string(k) }

// Threshold returns the approval threshold in basis points. Higher-consequence
// claims demand a wider supermajority.
func (k ClaimKind) Threshold(p governance.Params) uint16 {
	switch k {
	case KindNewPrimary:
		return p.PrimaryThreshold
	case KindDuplicateFlag:
		return p.DuplicateThreshold
	default:
		return p.LinkThreshold
	}
}

// SlashRate returns the bps slashed from incorrect voters. An approved
// DuplicateFlag is a confirmed Sybil and slashes in full.
func (k ClaimKind) SlashRate(p governance.Params, approved bool) uint16 {
	if k == KindDuplicateFlag && approved {
		return p.SybilSlashBps
	}
	switch k {
	case KindNewPrimary:
		return p.PrimarySlashBps
	case KindDuplicateFlag:
		return p.DuplicateSlashBps
	default:
		return p.LinkSlashBps
	}
}

// RequiredStake returns the type-specific minimum stake.
func (k ClaimKind) RequiredStake(p governance.Params) uint64 {
	switch k {
	case KindNewPrimary:
		return p.MinStake * p.PrimaryStakeMultiplier
	case KindDuplicateFlag:
		return p.MinStake * p.DuplicateStakeMultiplier
	default:
		return p.MinStake
	}
}

// Cooldown returns the waiting period imposed on the relevant actor after a
// failed claim of this kind.
func (k ClaimKind) Cooldown(p governance.Params) time.Duration {
	if k == KindDuplicateFlag {
		return p.DuplicateFlagCooldown
	}
	return p.FailedClaimCooldown
}

// ClaimStatus is a claim's lifecycle state. Transitions are monotonic: a
// claim leaves Active exactly once, into exactly one terminal status.
type ClaimStatus string

const (
	StatusActive   ClaimStatus = "active"
	StatusApproved ClaimStatus = "approved"
	StatusRejected ClaimStatus = "rejected"
	StatusExpired  ClaimStatus = "expired"
)

func (s ClaimStatus) String() string { return string(s) }

// Terminal reports whether the status is final.
func (s ClaimStatus) Terminal() bool { return s != StatusActive }

// Claim is a proposal about an identity fact, voted on by staked vouches.
type Claim struct {
	ID      domain.ClaimID
	Kind    ClaimKind
	Status  ClaimStatus
	Creator domain.Address

	// Subject is the address the claim is about or challenging. Related is
	// the Primary being linked to (LinkToPrimary) or the alleged duplicate
	// (DuplicateFlag); zero for NewPrimary.
	Subject domain.Address
	Related domain.Address

	Platform      string
	Justification string

	CreatedAt time.Time
	ExpiresAt time.Time

	// WeightFor/WeightAgainst are running weighted-vote sums; they only grow.
	WeightFor     uint64
	WeightAgainst uint64

	// TotalStake is every stake ever placed on the claim; it only grows.
	TotalStake uint64

	// TotalSlashed accumulates as losing vouches settle; the pro-rata reward
	// pool is fixed at resolution time from the losing side's stakes.
	TotalSlashed uint64

	VouchCount int

	// Resolved flips to true exactly once, iff status is Approved or Rejected.
	// Expired claims failed by timeout, not by vote, and are never Resolved.
	Resolved bool

	// EarlyAdopter marks claims created inside the early-adopter window;
	// their minted rewards are multiplied.
	EarlyAdopter bool
}

// TotalWeight is the combined weighted vote on both sides.
func (c *Claim) TotalWeight() uint64 {
	return c.WeightFor + c.WeightAgainst
}

// SupportBps returns the weighted support percentage in basis points.
// Integer division truncates toward zero; consensus comparisons depend on
// this exact rounding.
func (c *Claim) SupportBps() uint16 {
	total := c.TotalWeight()
	if total == 0 {
		return 0
	}
	pct := (uint64(c.WeightFor) * governance.BasisPoints) / total
	if pct > governance.BasisPoints {
		pct = governance.BasisPoints
	}
	return uint16(pct)
}

// ConsensusReached evaluates the claim against its kind's threshold.
// Returns (approved, true) when either side crossed; (_, false) while the
// vote is still open. Callers guard the zero-weight case.
func (c *Claim) ConsensusReached(p governance.Params) (bool, bool) {
	if c.Status != StatusActive || c.TotalWeight() == 0 {
		return false, false
	}
	threshold := c.Kind.Threshold(p)
	support := c.SupportBps()
	if support >= threshold {
		return true, true
	}
	if governance.BasisPoints-support >= threshold {
		return false, true
	}
	return false, false
}

// ExpiredAt reports whether the claim's voting window has closed at the given
// instant. Expiry takes priority over a vote arriving exactly on the boundary.
func (c *Claim) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
