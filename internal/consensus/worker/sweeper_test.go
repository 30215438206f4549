package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

type fakeEngine struct {
	ids     []domain.ClaimID
	listErr error
	results map[domain.ClaimID]error
	calls   []domain.ClaimID
}

func (f *fakeEngine) ActiveClaimIDs(ctx context.Context) ([]domain.ClaimID, error) {
	return f.ids, f.listErr
}

func (f *fakeEngine) ResolveExpired(ctx context.Context, id domain.ClaimID) (bool, error) {
	f.calls = append(f.calls, id)
	return false, f.results[id]
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepCountsOnlyExpirations(t *testing.T) {
	engine := &fakeEngine{
		ids: []domain.ClaimID{1, 2, 3, 4},
		results: map[domain.ClaimID]error{
			1: nil,
			2: dErrors.New(dErrors.CodeTiming, "still open"),
			3: dErrors.New(dErrors.CodeStateConflict, "already finalized"),
			4: nil,
		},
	}
	s := NewSweeper(engine, 0, discard())

	assert.Equal(t, 2, s.Sweep(context.Background()))
	assert.Equal(t, []domain.ClaimID{1, 2, 3, 4}, engine.calls, "every active claim is visited")
}

func TestSweepToleratesResolveFailures(t *testing.T) {
	engine := &fakeEngine{
		ids: []domain.ClaimID{1, 2},
		results: map[domain.ClaimID]error{
			1: dErrors.New(dErrors.CodeInternal, "store down"),
			2: nil,
		},
	}
	s := NewSweeper(engine, 0, discard())

	// A failure on one claim does not stop the pass.
	assert.Equal(t, 1, s.Sweep(context.Background()))
	assert.Len(t, engine.calls, 2)
}

func TestSweepListFailureSweepsNothing(t *testing.T) {
	engine := &fakeEngine{listErr: dErrors.New(dErrors.CodeInternal, "store down")}
	s := NewSweeper(engine, 0, discard())

	assert.Zero(t, s.Sweep(context.Background()))
	assert.Empty(t, engine.calls)
}

func TestRunStopsOnCancel(t *testing.T) {
	engine := &fakeEngine{}
	s := NewSweeper(engine, time.Hour, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// The immediate startup sweep still ran.
	assert.Empty(t, engine.calls)
}
