// Package claim persists claim records. The memory store backs tests and
// single-node deployments; the postgres store backs durable ones.
package claim

import (
	"context"
	"sync"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// MemoryStore is an in-memory claim table with a creator index.
type MemoryStore struct {
	mu        sync.RWMutex
	claims    map[domain.ClaimID]*models.Claim
	byCreator map[domain.Address][]domain.ClaimID
	nextID    domain.ClaimID
}

// NewMemoryStore creates an empty store. IDs start at 1; 0 stays the
// no-claim sentinel.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		claims:    make(map[domain.ClaimID]*models.Claim),
		byCreator: make(map[domain.Address][]domain.ClaimID),
		nextID:    1,
	}
}

func (s *MemoryStore) Create(ctx context.Context, c *models.Claim) (domain.ClaimID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.ID = s.nextID
	s.nextID++

	cp := *c
	s.claims[c.ID] = &cp
	s.byCreator[c.Creator] = append(s.byCreator[c.Creator], c.ID)
	return c.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id domain.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.claims[id]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "claim %d not found", id)
	}
	cp := *c
	return &cp, nil
}

func (s *MemoryStore) Update(ctx context.Context, c *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.claims[c.ID]; !ok {
		return dErrors.Newf(dErrors.CodeNotFound, "claim %d not found", c.ID)
	}
	cp := *c
	s.claims[c.ID] = &cp
	return nil
}

func (s *MemoryStore) ByCreator(ctx context.Context, addr domain.Address) ([]domain.ClaimID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]domain.ClaimID, len(s.byCreator[addr]))
	copy(ids, s.byCreator[addr])
	return ids, nil
}

func (s *MemoryStore) ActiveIDs(ctx context.Context) ([]domain.ClaimID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []domain.ClaimID
	// Iterate in ID order so the sweeper expires oldest claims first.
	for id := domain.ClaimID(1); id < s.nextID; id++ {
		if c, ok := s.claims[id]; ok && c.Status == models.StatusActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
