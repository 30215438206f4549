package token

import (
	"context"
	"sync"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// MemoryLedger is a thread-safe in-memory token ledger.
type MemoryLedger struct {
	mu       sync.RWMutex
	balances map[domain.Address]uint64
	minted   uint64
	burned   uint64
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[domain.Address]uint64)}
}

func (l *MemoryLedger) BalanceOf(ctx context.Context, addr domain.Address) (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[addr], nil
}

func (l *MemoryLedger) Transfer(ctx context.Context, from, to domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return dErrors.Newf(dErrors.CodeEconomic, "insufficient balance: %s holds %d, needs %d", from, l.balances[from], amount)
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

func (l *MemoryLedger) Mint(ctx context.Context, to domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] += amount
	l.minted += amount
	return nil
}

func (l *MemoryLedger) Burn(ctx context.Context, from domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return dErrors.Newf(dErrors.CodeEconomic, "cannot burn %d from %s holding %d", amount, from, l.balances[from])
	}
	l.balances[from] -= amount
	l.burned += amount
	return nil
}

// TotalMinted returns the lifetime minted amount, for conservation checks.
func (l *MemoryLedger) TotalMinted() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.minted
}

// TotalBurned returns the lifetime burned amount.
func (l *MemoryLedger) TotalBurned() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.burned
}
