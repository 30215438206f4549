// Package worker runs the background expiry sweeper.
package worker

import (
	"context"
	"log/slog"
	"time"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Engine is the slice of the consensus service the sweeper drives.
type Engine interface {
	ActiveClaimIDs(ctx context.Context) ([]domain.ClaimID, error)
	ResolveExpired(ctx context.Context, claimID domain.ClaimID) (bool, error)
}

// Sweeper periodically finalizes claims whose voting window has closed.
// Expiry is also enforced inline on every vouch; the sweeper exists so claims
// nobody touches still reach their terminal state.
type Sweeper struct {
	engine   Engine
	interval time.Duration
	logger   *slog.Logger
}

// NewSweeper creates a Sweeper running at the given interval.
func NewSweeper(engine Engine, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{engine: engine, interval: interval, logger: logger}
}

// Run sweeps until the context is cancelled. One sweep runs immediately on
// start.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over the active claims and returns how many expired.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ids, err := s.engine.ActiveClaimIDs(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep: listing active claims failed", "error", err)
		return 0
	}

	expired := 0
	for _, id := range ids {
		_, err := s.engine.ResolveExpired(ctx, id)
		switch {
		case err == nil:
			expired++
		case dErrors.Is(err, dErrors.CodeTiming):
			// Still inside its voting window.
		case dErrors.Is(err, dErrors.CodeStateConflict):
			// Finalized between listing and the call.
		default:
			s.logger.ErrorContext(ctx, "sweep: expiring claim failed", "claim_id", id, "error", err)
		}
	}
	if expired > 0 {
		s.logger.InfoContext(ctx, "sweep finished", "expired", expired, "scanned", len(ids))
	}
	return expired
}
