//go:build integration

package cooldown

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"knomee/internal/consensus/ports"
	"knomee/pkg/testutil/containers"
)

type RedisCooldownSuite struct {
	suite.Suite
	ctx   context.Context
	rc    *containers.RedisContainer
	store *RedisStore
}

func (s *RedisCooldownSuite) SetupSuite() {
	s.ctx = context.Background()
	s.rc = containers.NewRedisContainer(s.T())
	s.store = NewRedis(s.rc.Client, time.Hour)
}

func (s *RedisCooldownSuite) TearDownSuite() {
	_ = s.rc.Client.Close()
	_ = s.rc.Container.Terminate(s.ctx)
}

func (s *RedisCooldownSuite) SetupTest() {
	require.NoError(s.T(), s.rc.FlushAll(s.ctx))
}

func (s *RedisCooldownSuite) TestSetAndGetRoundTrip() {
	at := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(s.T(), s.store.Set(s.ctx, ports.CooldownFailedClaim, "alice", at))

	got, ok, err := s.store.Get(s.ctx, ports.CooldownFailedClaim, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
	assert.True(s.T(), got.Equal(at))
}

func (s *RedisCooldownSuite) TestMissingReadsAsNoCooldown() {
	_, ok, err := s.store.Get(s.ctx, ports.CooldownFailedClaim, "nobody")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *RedisCooldownSuite) TestKindsAreIndependent() {
	at := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	require.NoError(s.T(), s.store.Set(s.ctx, ports.CooldownFailedClaim, "alice", at))

	_, ok, err := s.store.Get(s.ctx, ports.CooldownDuplicateFlag, "alice")
	require.NoError(s.T(), err)
	assert.False(s.T(), ok)
}

func (s *RedisCooldownSuite) TestOverwriteKeepsLatest() {
	first := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)
	require.NoError(s.T(), s.store.Set(s.ctx, ports.CooldownDuplicateFlag, "alice", first))
	require.NoError(s.T(), s.store.Set(s.ctx, ports.CooldownDuplicateFlag, "alice", second))

	got, ok, err := s.store.Get(s.ctx, ports.CooldownDuplicateFlag, "alice")
	require.NoError(s.T(), err)
	assert.True(s.T(), ok)
	assert.True(s.T(), got.Equal(second))
}

func (s *RedisCooldownSuite) TestEntriesExpireWithTTL() {
	short := NewRedis(s.rc.Client, 50*time.Millisecond)
	at := time.Now().UTC()
	require.NoError(s.T(), short.Set(s.ctx, ports.CooldownFailedClaim, "alice", at))

	assert.Eventually(s.T(), func() bool {
		_, ok, err := short.Get(s.ctx, ports.CooldownFailedClaim, "alice")
		return err == nil && !ok
	}, time.Second, 20*time.Millisecond)
}

func TestRedisCooldownSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCooldownSuite))
}
