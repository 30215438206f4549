// Package audit captures protocol-relevant state changes as structured events.
// The consensus service emits; sinks range from the in-memory store used by
// tests to the Kafka publisher used in deployments.
package audit

import (
	"context"
	"time"

	"knomee/pkg/domain"
)

// Action names for consensus events.
const (
	ActionClaimCreated  = "claim_created"
	ActionVouchCast     = "vouch_cast"
	ActionClaimResolved = "claim_resolved"
	ActionClaimExpired  = "claim_expired"
	ActionStakeSettled  = "stake_settled"
	ActionStakeSlashed  = "stake_slashed"
	ActionParamsUpdated = "governance_params_updated"
	ActionOracleUpgrade = "oracle_upgraded"
)

// Event is one audit record. Fields beyond Action are optional and filled per
// action.
type Event struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Timestamp  time.Time      `json:"timestamp"`
	ClaimID    domain.ClaimID `json:"claim_id,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	Status     string         `json:"status,omitempty"`
	Actor      domain.Address `json:"actor,omitempty"`
	Subject    domain.Address `json:"subject,omitempty"`
	Related    domain.Address `json:"related,omitempty"`
	Supporting bool           `json:"supporting,omitempty"`
	Stake      uint64         `json:"stake,omitempty"`
	Weight     uint64         `json:"weight,omitempty"`
	Amount     uint64         `json:"amount,omitempty"`
	Reason     string         `json:"reason,omitempty"`
}

// Store persists audit events. Append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
}
