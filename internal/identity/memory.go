package identity

import (
	"context"
	"sync"
	"time"

	"knomee/internal/governance"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// MemoryRegistry is the in-memory Registry and WeightSource implementation.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[domain.Address]*Record
	links   map[domain.Address][]Link // primary -> links, platform-unique
	gov     *governance.Governance
	clock   *governance.Clock
}

// NewMemoryRegistry creates an empty registry. Governance supplies tier
// weights, the clock stamps verification times.
func NewMemoryRegistry(gov *governance.Governance, clock *governance.Clock) *MemoryRegistry {
	return &MemoryRegistry{
		records: make(map[domain.Address]*Record),
		links:   make(map[domain.Address][]Link),
		gov:     gov,
		clock:   clock,
	}
}

// get returns the record for addr, materializing a GreyGhost if absent.
// Callers must hold r.mu for writing.
func (r *MemoryRegistry) get(addr domain.Address) *Record {
	rec, ok := r.records[addr]
	if !ok {
		rec = &Record{Owner: addr, Tier: domain.TierGreyGhost, Primary: addr}
		r.records[addr] = rec
	}
	return rec
}

// view returns a copy of the record for addr without materializing it.
func (r *MemoryRegistry) view(addr domain.Address) Record {
	if rec, ok := r.records[addr]; ok {
		return *rec
	}
	return Record{Owner: addr, Tier: domain.TierGreyGhost, Primary: addr}
}

func (r *MemoryRegistry) GetTier(ctx context.Context, addr domain.Address) (domain.Tier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view(addr).Tier, nil
}

func (r *MemoryRegistry) IsPrimary(ctx context.Context, addr domain.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view(addr).Tier.IsPrimary(), nil
}

func (r *MemoryRegistry) IsOracle(ctx context.Context, addr domain.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view(addr).Tier == domain.TierOracle, nil
}

func (r *MemoryRegistry) IsUnderChallenge(ctx context.Context, addr domain.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view(addr).UnderChallenge, nil
}

func (r *MemoryRegistry) MarkUnderChallenge(ctx context.Context, addr domain.Address, claimID domain.ClaimID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.get(addr)
	if rec.UnderChallenge {
		return dErrors.Newf(dErrors.CodeEligibility, "address %s already under challenge", addr)
	}
	rec.UnderChallenge = true
	rec.ChallengeClaimID = claimID
	return nil
}

func (r *MemoryRegistry) ClearChallenge(ctx context.Context, addr domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.get(addr)
	rec.UnderChallenge = false
	rec.ChallengeClaimID = 0
	return nil
}

func (r *MemoryRegistry) UpgradeToPrimary(ctx context.Context, addr domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.get(addr)
	if rec.Tier.IsPrimary() {
		return dErrors.Newf(dErrors.CodeStateConflict, "address %s is already a primary", addr)
	}
	rec.Tier = domain.TierPrimaryID
	rec.Primary = addr
	rec.VerifiedAt = r.clock.Now()
	return nil
}

func (r *MemoryRegistry) UpgradeToLinked(ctx context.Context, addr, primary domain.Address, platform, justification string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prim := r.get(primary)
	if !prim.Tier.IsPrimary() {
		return dErrors.Newf(dErrors.CodeEligibility, "link target %s is not a primary", primary)
	}
	if prim.LinkedCount >= MaxLinkedIdentities {
		return dErrors.Newf(dErrors.CodeEligibility, "primary %s reached the linked identity limit", primary)
	}
	for _, l := range r.links[primary] {
		if l.Platform == platform {
			return dErrors.Newf(dErrors.CodeStateConflict, "primary %s already has a link for platform %q", primary, platform)
		}
	}

	rec := r.get(addr)
	rec.Tier = domain.TierLinkedID
	rec.Primary = primary
	rec.VerifiedAt = r.clock.Now()

	prim.LinkedCount++
	r.links[primary] = append(r.links[primary], Link{
		Primary:  primary,
		Linked:   addr,
		Platform: platform,
		LinkedAt: rec.VerifiedAt,
	})
	return nil
}

// DowngradeIdentity drops addr to the given tier. Downgrading a Primary also
// downgrades every linked secondary; the cascade iterates over the bounded
// link list, it never recurses.
func (r *MemoryRegistry) DowngradeIdentity(ctx context.Context, addr domain.Address, to domain.Tier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.get(addr)
	wasPrimary := rec.Tier.IsPrimary()
	rec.Tier = to
	rec.VerifiedAt = time.Time{}

	if wasPrimary {
		for _, l := range r.links[addr] {
			sec := r.get(l.Linked)
			sec.Tier = domain.TierGreyGhost
			sec.Primary = l.Linked
			sec.VerifiedAt = time.Time{}
		}
		delete(r.links, addr)
		rec.LinkedCount = 0
		rec.Primary = addr
	}
	return nil
}

func (r *MemoryRegistry) RecordVouch(ctx context.Context, addr domain.Address, stake uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.get(addr)
	rec.TotalVouchesReceived++
	rec.TotalStakeReceived += stake
	return nil
}

// IdentityWeight implements WeightSource from the live tier and the current
// governance weights.
func (r *MemoryRegistry) IdentityWeight(ctx context.Context, addr domain.Address) (uint64, error) {
	r.mu.RLock()
	tier := r.view(addr).Tier
	r.mu.RUnlock()
	return r.gov.Snapshot().WeightOf(tier), nil
}

// UpgradeToOracle promotes a PrimaryID to the high-trust Oracle tier.
// Authority-gated at the service layer.
func (r *MemoryRegistry) UpgradeToOracle(ctx context.Context, addr domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.get(addr)
	if rec.Tier == domain.TierOracle {
		return dErrors.Newf(dErrors.CodeStateConflict, "address %s is already an oracle", addr)
	}
	if rec.Tier != domain.TierPrimaryID {
		return dErrors.Newf(dErrors.CodeEligibility, "only primaries can be promoted to oracle")
	}
	rec.Tier = domain.TierOracle
	return nil
}

// Links returns the platform links of a primary, for read endpoints and tests.
func (r *MemoryRegistry) Links(ctx context.Context, primary domain.Address) ([]Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Link, len(r.links[primary]))
	copy(out, r.links[primary])
	return out, nil
}

// Snapshot returns a copy of an address's record.
func (r *MemoryRegistry) Snapshot(ctx context.Context, addr domain.Address) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view(addr), nil
}
