// Package identity implements the tier registry the consensus core calls into.
// The core only depends on the Registry and WeightSource interfaces; the
// in-memory implementation here backs single-node deployments and tests.
package identity

import (
	"context"
	"time"

	"knomee/pkg/domain"
)

// MaxLinkedIdentities bounds the downgrade cascade. A Primary can hold at
// most this many linked secondaries, so downgrading one touches a known,
// finite set of records.
const MaxLinkedIdentities = 32

// Record is one address's identity state.
type Record struct {
	Owner   domain.Address
	Tier    domain.Tier
	Primary domain.Address // self-referential unless LinkedID

	VerifiedAt time.Time

	TotalVouchesReceived uint64
	TotalStakeReceived   uint64

	UnderChallenge   bool
	ChallengeClaimID domain.ClaimID

	LinkedCount int
}

// Link is one approved platform link between a secondary and its Primary.
type Link struct {
	Primary  domain.Address
	Linked   domain.Address
	Platform string
	LinkedAt time.Time
}

// Registry is the identity-state surface the consensus core consumes.
// Implementations must tolerate unknown addresses: lookups on them behave as
// GreyGhost records.
type Registry interface {
	GetTier(ctx context.Context, addr domain.Address) (domain.Tier, error)
	IsPrimary(ctx context.Context, addr domain.Address) (bool, error)
	IsOracle(ctx context.Context, addr domain.Address) (bool, error)
	IsUnderChallenge(ctx context.Context, addr domain.Address) (bool, error)

	MarkUnderChallenge(ctx context.Context, addr domain.Address, claimID domain.ClaimID) error
	ClearChallenge(ctx context.Context, addr domain.Address) error

	UpgradeToPrimary(ctx context.Context, addr domain.Address) error
	UpgradeToLinked(ctx context.Context, addr, primary domain.Address, platform, justification string) error
	DowngradeIdentity(ctx context.Context, addr domain.Address, to domain.Tier) error

	RecordVouch(ctx context.Context, addr domain.Address, stake uint64) error
}

// WeightSource resolves an address's current identity weight. The consensus
// core snapshots the weight at vouch time and never re-reads it for a
// recorded vouch.
type WeightSource interface {
	IdentityWeight(ctx context.Context, addr domain.Address) (uint64, error)
}
