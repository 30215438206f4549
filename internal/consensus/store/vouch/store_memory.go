// Package vouch persists vouch records keyed by (claim, sequence), with a
// (claim, voucher) double-vote guard enforced at the storage layer as well as
// by the engine.
package vouch

import (
	"context"
	"sync"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

type voterKey struct {
	claim   domain.ClaimID
	voucher domain.Address
}

// MemoryStore is an in-memory vouch table.
type MemoryStore struct {
	mu      sync.RWMutex
	byClaim map[domain.ClaimID][]*models.Vouch
	voters  map[voterKey]int // index into byClaim slice
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byClaim: make(map[domain.ClaimID][]*models.Vouch),
		voters:  make(map[voterKey]int),
	}
}

func (s *MemoryStore) Append(ctx context.Context, v *models.Vouch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := voterKey{claim: v.ClaimID, voucher: v.Voucher}
	if _, dup := s.voters[key]; dup {
		return dErrors.Newf(dErrors.CodeStateConflict, "%s already vouched on claim %d", v.Voucher, v.ClaimID)
	}
	cp := *v
	s.voters[key] = len(s.byClaim[v.ClaimID])
	s.byClaim[v.ClaimID] = append(s.byClaim[v.ClaimID], &cp)
	return nil
}

func (s *MemoryStore) Has(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.voters[voterKey{claim: claimID, voucher: voucher}]
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (*models.Vouch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.voters[voterKey{claim: claimID, voucher: voucher}]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no vouch by %s on claim %d", voucher, claimID)
	}
	cp := *s.byClaim[claimID][idx]
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, v *models.Vouch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.voters[voterKey{claim: v.ClaimID, voucher: v.Voucher}]
	if !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "no vouch by %s on claim %d", v.Voucher, v.ClaimID)
	}
	cp := *v
	s.byClaim[v.ClaimID][idx] = &cp
	return nil
}

func (s *MemoryStore) ListByClaim(ctx context.Context, claimID domain.ClaimID) ([]*models.Vouch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vouches := s.byClaim[claimID]
	out := make([]*models.Vouch, len(vouches))
	for i, v := range vouches {
		cp := *v
		out[i] = &cp
	}
	return out, nil
}
