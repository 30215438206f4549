// Package token abstracts the fungible stake-token ledger. The consensus core
// moves stake through this interface only; the ledger itself is an external
// collaborator and the in-memory implementation stands in for it.
package token

import (
	"context"

	"knomee/pkg/domain"
)

// CustodyAddress holds all staked tokens while claims are open. Debits into
// and credits out of it happen inside the same engine-serialized operation as
// the claim-state mutation that justifies them.
const CustodyAddress domain.Address = "protocol:custody"

// Ledger is the stake-token surface the consensus core consumes.
type Ledger interface {
	BalanceOf(ctx context.Context, addr domain.Address) (uint64, error)
	Transfer(ctx context.Context, from, to domain.Address, amount uint64) error
	Mint(ctx context.Context, to domain.Address, amount uint64) error
	Burn(ctx context.Context, from domain.Address, amount uint64) error
}
