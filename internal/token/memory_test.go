package token

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "knomee/pkg/domain-errors"
)

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	require.NoError(t, ledger.Mint(ctx, "alice", 100))

	require.NoError(t, ledger.Transfer(ctx, "alice", CustodyAddress, 30))

	alice, err := ledger.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(70), alice)

	custody, err := ledger.BalanceOf(ctx, CustodyAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(30), custody)
}

func TestTransferInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	require.NoError(t, ledger.Mint(ctx, "alice", 5))

	err := ledger.Transfer(ctx, "alice", "bob", 10)
	assert.True(t, dErrors.Is(err, dErrors.CodeEconomic))

	// Nothing moved.
	alice, _ := ledger.BalanceOf(ctx, "alice")
	bob, _ := ledger.BalanceOf(ctx, "bob")
	assert.Equal(t, uint64(5), alice)
	assert.Zero(t, bob)
}

func TestMintBurnConservation(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()

	require.NoError(t, ledger.Mint(ctx, "alice", 100))
	require.NoError(t, ledger.Mint(ctx, "bob", 50))
	require.NoError(t, ledger.Burn(ctx, "alice", 40))

	assert.Equal(t, uint64(150), ledger.TotalMinted())
	assert.Equal(t, uint64(40), ledger.TotalBurned())

	alice, _ := ledger.BalanceOf(ctx, "alice")
	bob, _ := ledger.BalanceOf(ctx, "bob")
	assert.Equal(t, ledger.TotalMinted()-ledger.TotalBurned(), alice+bob)
}

func TestBurnMoreThanHeld(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	require.NoError(t, ledger.Mint(ctx, "alice", 10))

	err := ledger.Burn(ctx, "alice", 11)
	assert.True(t, dErrors.Is(err, dErrors.CodeEconomic))
	assert.Zero(t, ledger.TotalBurned())
}
