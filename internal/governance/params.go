// Package governance holds the protocol parameter snapshot and the logical
// clock. Parameters are read as immutable copies so an operation in flight
// never observes a mid-flight update.
package governance

import (
	"sync"
	"time"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Basis-points denominator for thresholds and slash rates.
const BasisPoints = 10_000

// Default parameter values.
const (
	DefaultLinkThreshold      uint16 = 5100 // 51%
	DefaultPrimaryThreshold   uint16 = 6700 // 67%
	DefaultDuplicateThreshold uint16 = 8000 // 80%

	DefaultMinStake uint64 = 10

	DefaultPrimaryStakeMultiplier   uint64 = 3
	DefaultDuplicateStakeMultiplier uint64 = 10

	DefaultLinkSlashBps      uint16 = 1000  // 10%
	DefaultPrimarySlashBps   uint16 = 3000  // 30%
	DefaultDuplicateSlashBps uint16 = 5000  // 50%
	DefaultSybilSlashBps     uint16 = 10000 // 100%: a confirmed Sybil forfeits everything

	DefaultPrimaryVoteWeight uint64 = 1
	DefaultOracleVoteWeight  uint64 = 100
)

// Default time periods.
const (
	DefaultFailedClaimCooldown   = 7 * 24 * time.Hour
	DefaultDuplicateFlagCooldown = 30 * 24 * time.Hour
	DefaultClaimExpiryDuration   = 30 * 24 * time.Hour
	DefaultEarlyAdopterPeriod    = 180 * 24 * time.Hour
)

// EarlyAdopterMultiplier doubles minted rewards for claims created inside the
// early-adopter window.
const EarlyAdopterMultiplier uint64 = 2

// Params is the protocol parameter set. Values are plain data; a Params is
// safe to copy and a copy never changes.
type Params struct {
	LinkThreshold      uint16
	PrimaryThreshold   uint16
	DuplicateThreshold uint16

	MinStake uint64

	PrimaryStakeMultiplier   uint64
	DuplicateStakeMultiplier uint64

	LinkSlashBps      uint16
	PrimarySlashBps   uint16
	DuplicateSlashBps uint16
	SybilSlashBps     uint16

	PrimaryVoteWeight uint64
	OracleVoteWeight  uint64

	FailedClaimCooldown   time.Duration
	DuplicateFlagCooldown time.Duration
	ClaimExpiryDuration   time.Duration

	EarlyAdopterPeriod time.Duration
}

// DefaultParams returns the protocol defaults.
func DefaultParams() Params {
	return Params{
		LinkThreshold:            DefaultLinkThreshold,
		PrimaryThreshold:         DefaultPrimaryThreshold,
		DuplicateThreshold:       DefaultDuplicateThreshold,
		MinStake:                 DefaultMinStake,
		PrimaryStakeMultiplier:   DefaultPrimaryStakeMultiplier,
		DuplicateStakeMultiplier: DefaultDuplicateStakeMultiplier,
		LinkSlashBps:             DefaultLinkSlashBps,
		PrimarySlashBps:          DefaultPrimarySlashBps,
		DuplicateSlashBps:        DefaultDuplicateSlashBps,
		SybilSlashBps:            DefaultSybilSlashBps,
		PrimaryVoteWeight:        DefaultPrimaryVoteWeight,
		OracleVoteWeight:         DefaultOracleVoteWeight,
		FailedClaimCooldown:      DefaultFailedClaimCooldown,
		DuplicateFlagCooldown:    DefaultDuplicateFlagCooldown,
		ClaimExpiryDuration:      DefaultClaimExpiryDuration,
		EarlyAdopterPeriod:       DefaultEarlyAdopterPeriod,
	}
}

// Validate enforces the parameter bounds. Thresholds must stay strict
// majorities so a claim can never be simultaneously approvable and
// rejectable; slash rates cannot exceed the full stake.
func (p Params) Validate() error {
	for _, t := range []uint16{p.LinkThreshold, p.PrimaryThreshold, p.DuplicateThreshold} {
		if t < 5100 || t > BasisPoints {
			return dErrors.Newf(dErrors.CodeValidation, "threshold %d out of range [5100, 10000]", t)
		}
	}
	for _, s := range []uint16{p.LinkSlashBps, p.PrimarySlashBps, p.DuplicateSlashBps, p.SybilSlashBps} {
		if s > BasisPoints {
			return dErrors.Newf(dErrors.CodeValidation, "slash rate %d exceeds 10000 bps", s)
		}
	}
	if p.MinStake == 0 {
		return dErrors.New(dErrors.CodeValidation, "min stake must be positive")
	}
	if p.PrimaryStakeMultiplier < 1 || p.DuplicateStakeMultiplier < 1 {
		return dErrors.New(dErrors.CodeValidation, "stake multipliers must be at least 1")
	}
	if p.ClaimExpiryDuration <= 0 {
		return dErrors.New(dErrors.CodeValidation, "claim expiry duration must be positive")
	}
	return nil
}

// WeightOf returns the identity weight for a tier under these parameters.
func (p Params) WeightOf(tier domain.Tier) uint64 {
	switch tier {
	case domain.TierPrimaryID:
		return p.PrimaryVoteWeight
	case domain.TierOracle:
		return p.OracleVoteWeight
	default:
		return 0
	}
}

// Governance owns the mutable parameter set and the authority allowed to
// change it. Reads hand out copies.
type Governance struct {
	mu        sync.RWMutex
	params    Params
	authority domain.Address
	createdAt time.Time
}

// New creates a Governance with validated parameters.
func New(authority domain.Address, params Params, now time.Time) (*Governance, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Governance{params: params, authority: authority, createdAt: now}, nil
}

// Snapshot returns an immutable copy of the current parameters.
func (g *Governance) Snapshot() Params {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.params
}

// Authority returns the parameter-update authority address.
func (g *Governance) Authority() domain.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authority
}

// CreatedAt returns protocol genesis time; the early-adopter window is
// measured from it.
func (g *Governance) CreatedAt() time.Time {
	return g.createdAt
}

// Update replaces the parameter set. Only the authority may call it.
func (g *Governance) Update(actor domain.Address, params Params) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if actor != g.authority {
		return dErrors.New(dErrors.CodeUnauthorized, "only the governance authority may update parameters")
	}
	if err := params.Validate(); err != nil {
		return err
	}
	g.params = params
	return nil
}
