//go:build integration

package vouch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
	"knomee/pkg/testutil/containers"
)

type PostgresVouchSuite struct {
	suite.Suite
	ctx   context.Context
	pg    *containers.PostgresContainer
	store *PostgresStore
}

func (s *PostgresVouchSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	require.NoError(s.T(), s.pg.ApplySchema(s.ctx, Schema))
	s.store = NewPostgres(s.pg.DB)
}

func (s *PostgresVouchSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(s.ctx)
}

func (s *PostgresVouchSuite) SetupTest() {
	require.NoError(s.T(), s.pg.Truncate(s.ctx, "vouches"))
}

func (s *PostgresVouchSuite) newVouch(claimID domain.ClaimID, voucher domain.Address, supporting bool) *models.Vouch {
	return &models.Vouch{
		ClaimID:    claimID,
		Voucher:    voucher,
		Supporting: supporting,
		Weight:     30,
		Stake:      30,
		VouchedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (s *PostgresVouchSuite) TestAppendAndGet() {
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(1, "alice", true)))

	got, err := s.store.Get(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), got.Supporting)
	assert.Equal(s.T(), uint64(30), got.Weight)
	assert.False(s.T(), got.RewardSettled)
}

func (s *PostgresVouchSuite) TestDoubleVouchUniqueViolation() {
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(1, "alice", true)))

	err := s.store.Append(s.ctx, s.newVouch(1, "alice", false))
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeStateConflict))

	// The same voucher on a different claim is fine.
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(2, "alice", true)))
}

func (s *PostgresVouchSuite) TestHas() {
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(1, "alice", true)))

	has, err := s.store.Has(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), has)

	has, err = s.store.Has(s.ctx, 1, "bob")
	require.NoError(s.T(), err)
	assert.False(s.T(), has)
}

func (s *PostgresVouchSuite) TestUpdateSettlement() {
	v := s.newVouch(1, "alice", true)
	require.NoError(s.T(), s.store.Append(s.ctx, v))

	v.RewardSettled = true
	v.SettledAmount = 48
	require.NoError(s.T(), s.store.Update(s.ctx, v))

	got, err := s.store.Get(s.ctx, 1, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), got.RewardSettled)
	assert.Equal(s.T(), uint64(48), got.SettledAmount)
}

func (s *PostgresVouchSuite) TestUpdateMissing() {
	v := s.newVouch(9, "nobody", true)
	err := s.store.Update(s.ctx, v)
	assert.True(s.T(), dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *PostgresVouchSuite) TestListByClaimPreservesCastOrder() {
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(1, "alice", true)))
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(1, "bob", false)))
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(1, "carol", true)))
	require.NoError(s.T(), s.store.Append(s.ctx, s.newVouch(2, "dave", true)))

	vs, err := s.store.ListByClaim(s.ctx, 1)
	require.NoError(s.T(), err)
	require.Len(s.T(), vs, 3)
	assert.Equal(s.T(), domain.Address("alice"), vs[0].Voucher)
	assert.Equal(s.T(), domain.Address("bob"), vs[1].Voucher)
	assert.Equal(s.T(), domain.Address("carol"), vs[2].Voucher)
}

func TestPostgresVouchSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresVouchSuite))
}
