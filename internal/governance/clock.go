package governance

import (
	"sync"
	"time"

	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
)

// Clock is the protocol's logical time source. It wraps wall time with an
// authority-controlled warp offset so test deployments can fast-forward past
// cooldowns and expiries. Renouncing the warp freezes the offset permanently.
type Clock struct {
	mu        sync.RWMutex
	offset    time.Duration
	authority domain.Address
	renounced bool
	fixed     bool
	base      time.Time
	nowFn     func() time.Time
}

// NewClock creates a Clock warped by the given authority. A zero authority
// address creates a clock that can never be warped.
func NewClock(authority domain.Address) *Clock {
	return &Clock{authority: authority, nowFn: time.Now}
}

// NewFixedClock returns a clock pinned to an instant, movable only through
// Advance. Test fixtures use it to step deterministically past expiries.
func NewFixedClock(at time.Time) *Clock {
	c := &Clock{fixed: true, base: at}
	c.nowFn = func() time.Time { return c.base }
	return c
}

// Advance moves a fixed clock forward. No-op on wall clocks.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fixed {
		c.base = c.base.Add(d)
	}
}

// Now returns logical time: wall time plus the accumulated warp offset.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.nowFn().Add(c.offset)
}

// Warp moves logical time forward. Only the warp authority may call it, and
// only before Renounce.
func (c *Clock) Warp(actor domain.Address, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.renounced {
		return dErrors.New(dErrors.CodeStateConflict, "time warp has been renounced")
	}
	if c.authority.IsZero() || actor != c.authority {
		return dErrors.New(dErrors.CodeUnauthorized, "only the warp authority may warp time")
	}
	if d < 0 {
		return dErrors.New(dErrors.CodeValidation, "cannot warp time backwards")
	}
	c.offset += d
	return nil
}

// Renounce permanently disables warping. Idempotent failure: renouncing twice
// is a state conflict, matching the write-once discipline elsewhere.
func (c *Clock) Renounce(actor domain.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.renounced {
		return dErrors.New(dErrors.CodeStateConflict, "time warp already renounced")
	}
	if c.authority.IsZero() || actor != c.authority {
		return dErrors.New(dErrors.CodeUnauthorized, "only the warp authority may renounce")
	}
	c.renounced = true
	return nil
}
