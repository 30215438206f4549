// Package cooldown keeps per-address failure timestamps used to throttle
// repeat claims. The memory store backs tests; the redis store shares state
// across instances.
package cooldown

import (
	"context"
	"sync"
	"time"

	"knomee/internal/consensus/ports"
	"knomee/pkg/domain"
)

type key struct {
	kind ports.CooldownKind
	addr domain.Address
}

// MemoryStore is an in-memory cooldown table.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[key]time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[key]time.Time)}
}

func (s *MemoryStore) Set(ctx context.Context, kind ports.CooldownKind, addr domain.Address, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key{kind: kind, addr: addr}] = at
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, kind ports.CooldownKind, addr domain.Address) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	at, ok := s.entries[key{kind: kind, addr: addr}]
	return at, ok, nil
}
