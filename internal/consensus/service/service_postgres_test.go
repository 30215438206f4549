//go:build integration

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"knomee/internal/audit"
	claimstore "knomee/internal/consensus/store/claim"
	cooldownstore "knomee/internal/consensus/store/cooldown"
	vouchstore "knomee/internal/consensus/store/vouch"
	"knomee/internal/governance"
	"knomee/internal/identity"
	"knomee/internal/token"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
	"knomee/pkg/testutil/containers"
)

// faultyRegistry wraps the memory registry and fails RecordVouch on demand,
// after the claim and vouch writes of the same operation have been issued.
type faultyRegistry struct {
	*identity.MemoryRegistry
	failRecordVouch bool
}

func (r *faultyRegistry) RecordVouch(ctx context.Context, addr domain.Address, stake uint64) error {
	if r.failRecordVouch {
		return dErrors.New(dErrors.CodeInternal, "registry unavailable")
	}
	return r.MemoryRegistry.RecordVouch(ctx, addr, stake)
}

type PostgresEngineSuite struct {
	suite.Suite
	ctx context.Context
	pg  *containers.PostgresContainer

	clock    *governance.Clock
	registry *faultyRegistry
	ledger   *token.MemoryLedger
	claims   *claimstore.PostgresStore
	vouches  *vouchstore.PostgresStore

	svc *Service
}

func (s *PostgresEngineSuite) SetupSuite() {
	s.ctx = context.Background()
	s.pg = containers.NewPostgresContainer(s.T())
	require.NoError(s.T(), s.pg.ApplySchema(s.ctx, claimstore.Schema, vouchstore.Schema))
}

func (s *PostgresEngineSuite) TearDownSuite() {
	_ = s.pg.DB.Close()
	_ = s.pg.Container.Terminate(s.ctx)
}

func (s *PostgresEngineSuite) SetupTest() {
	require.NoError(s.T(), s.pg.Truncate(s.ctx, "vouches", "claims"))

	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.clock = governance.NewFixedClock(t0)
	gov, err := governance.New(authority, governance.DefaultParams(), s.clock.Now())
	require.NoError(s.T(), err)

	s.registry = &faultyRegistry{MemoryRegistry: identity.NewMemoryRegistry(gov, s.clock)}
	s.ledger = token.NewMemoryLedger()
	s.claims = claimstore.NewPostgres(s.pg.DB)
	s.vouches = vouchstore.NewPostgres(s.pg.DB)

	s.svc, err = New(
		s.claims, s.vouches, cooldownstore.NewMemoryStore(),
		s.registry, s.registry, s.ledger,
		gov, s.clock,
		WithAuditPublisher(audit.NewPublisher(audit.NewMemoryStore())),
		WithDB(s.pg.DB),
	)
	require.NoError(s.T(), err)
}

func (s *PostgresEngineSuite) openClaim(subject domain.Address) domain.ClaimID {
	require.NoError(s.T(), s.ledger.Mint(s.ctx, subject, 100))
	id, err := s.svc.CreatePrimaryClaim(s.ctx, subject, "unique human", 30)
	require.NoError(s.T(), err)
	return id
}

func (s *PostgresEngineSuite) TestVouchPersistsRowAndTallyTogether() {
	id := s.openClaim("alice")
	require.NoError(s.T(), s.registry.UpgradeToPrimary(s.ctx, "bob"))
	require.NoError(s.T(), s.ledger.Mint(s.ctx, "bob", 50))

	require.NoError(s.T(), s.svc.Vouch(s.ctx, id, "bob", true, 10))

	c, err := s.claims.Get(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(40), c.WeightFor)
	assert.Equal(s.T(), uint64(40), c.TotalStake)
	assert.Equal(s.T(), 2, c.VouchCount)

	has, err := s.vouches.Has(s.ctx, id, "bob")
	require.NoError(s.T(), err)
	assert.True(s.T(), has)
}

func (s *PostgresEngineSuite) TestVouchRollsBackOnLateFailure() {
	id := s.openClaim("alice")
	require.NoError(s.T(), s.registry.UpgradeToPrimary(s.ctx, "bob"))
	require.NoError(s.T(), s.ledger.Mint(s.ctx, "bob", 50))

	// RecordVouch runs after the vouch row and the claim tallies have been
	// written; its failure must undo both.
	s.registry.failRecordVouch = true
	err := s.svc.Vouch(s.ctx, id, "bob", true, 10)
	require.Error(s.T(), err)

	has, err := s.vouches.Has(s.ctx, id, "bob")
	require.NoError(s.T(), err)
	assert.False(s.T(), has)

	c, err := s.claims.Get(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), uint64(30), c.WeightFor)
	assert.Equal(s.T(), uint64(30), c.TotalStake)
	assert.Equal(s.T(), 1, c.VouchCount)

	// With the failure cleared the same vouch goes through whole.
	s.registry.failRecordVouch = false
	require.NoError(s.T(), s.svc.Vouch(s.ctx, id, "bob", true, 10))
	c, err = s.claims.Get(s.ctx, id)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, c.VouchCount)
}

func (s *PostgresEngineSuite) TestCreateRollsBackClaimWithOpeningVouch() {
	s.registry.failRecordVouch = true
	require.NoError(s.T(), s.ledger.Mint(s.ctx, "alice", 100))

	_, err := s.svc.CreatePrimaryClaim(s.ctx, "alice", "unique human", 30)
	require.Error(s.T(), err)

	ids, err := s.claims.ByCreator(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Empty(s.T(), ids)
}

func TestPostgresEngineSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	suite.Run(t, new(PostgresEngineSuite))
}
