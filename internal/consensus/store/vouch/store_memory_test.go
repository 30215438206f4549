package vouch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *MemoryStore
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewMemoryStore()
}

func (s *MemoryStoreSuite) TestAppendAndGet() {
	v := &models.Vouch{ClaimID: 1, Voucher: "alice", Supporting: true, Weight: 30, Stake: 30}
	require.NoError(s.T(), s.store.Append(s.ctx, v))

	got, err := s.store.Get(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(30), got.Weight)
	assert.True(s.T(), got.Supporting)
}

func (s *MemoryStoreSuite) TestDoubleVouchRejected() {
	require.NoError(s.T(), s.store.Append(s.ctx, &models.Vouch{ClaimID: 1, Voucher: "alice", Supporting: true}))

	err := s.store.Append(s.ctx, &models.Vouch{ClaimID: 1, Voucher: "alice", Supporting: false})
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeStateConflict))

	// Same voucher on a different claim is fine.
	require.NoError(s.T(), s.store.Append(s.ctx, &models.Vouch{ClaimID: 2, Voucher: "alice", Supporting: false}))
}

func (s *MemoryStoreSuite) TestHas() {
	ok, err := s.store.Has(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)

	require.NoError(s.T(), s.store.Append(s.ctx, &models.Vouch{ClaimID: 1, Voucher: "alice"}))
	ok, err = s.store.Has(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
}

func (s *MemoryStoreSuite) TestUpdateSettlement() {
	require.NoError(s.T(), s.store.Append(s.ctx, &models.Vouch{ClaimID: 1, Voucher: "alice", Stake: 30}))

	v, err := s.store.Get(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	v.RewardSettled = true
	v.SettledAmount = 33
	require.NoError(s.T(), s.store.Update(s.ctx, v))

	got, err := s.store.Get(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), got.RewardSettled)
	assert.Equal(s.T(), uint64(33), got.SettledAmount)

	err = s.store.Update(s.ctx, &models.Vouch{ClaimID: 1, Voucher: "stranger"})
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *MemoryStoreSuite) TestListByClaimKeepsCastOrder() {
	for _, voucher := range []string{"alice", "bob", "carol"} {
		require.NoError(s.T(), s.store.Append(s.ctx, &models.Vouch{ClaimID: 1, Voucher: domain.Address(voucher)}))
	}

	vs, err := s.store.ListByClaim(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), vs, 3)
	assert.Equal(s.T(), domain.Address("alice"), vs[0].Voucher)
	assert.Equal(s.T(), domain.Address("bob"), vs[1].Voucher)
	assert.Equal(s.T(), domain.Address("carol"), vs[2].Voucher)

	// Mutating the returned copies must not touch the store.
	vs[0].Stake = 999
	again, err := s.store.Get(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.Zero(s.T(), again.Stake)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}
