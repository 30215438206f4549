// Package ports defines the storage and collaborator interfaces the consensus
// service consumes. Interfaces live here when more than one package needs
// them; implementations live under store/.
package ports

import (
	"context"
	"time"

	"knomee/internal/audit"
	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
)

// ClaimStore owns claim records. IDs are assigned by the store, monotonically,
// and never reused.
type ClaimStore interface {
	// Create persists a new claim, assigns its ID, and indexes it by creator.
	Create(ctx context.Context, claim *models.Claim) (domain.ClaimID, error)

	// Get returns a copy of the claim.
	Get(ctx context.Context, id domain.ClaimID) (*models.Claim, error)

	// Update replaces the stored claim. The engine serializes all writers, so
	// stores do not need compare-and-swap semantics.
	Update(ctx context.Context, claim *models.Claim) error

	// ByCreator returns the IDs of claims authored by addr, in creation order.
	ByCreator(ctx context.Context, addr domain.Address) ([]domain.ClaimID, error)

	// ActiveIDs returns the IDs of all claims still in StatusActive, for the
	// expiry sweeper.
	ActiveIDs(ctx context.Context) ([]domain.ClaimID, error)
}

// VouchStore owns vouch records, keyed by (claim, sequence), with a
// (claim, voucher) uniqueness guard.
type VouchStore interface {
	// Append records a vouch. Fails with CodeStateConflict if the voucher
	// already vouched on the claim.
	Append(ctx context.Context, vouch *models.Vouch) error

	// Has reports whether the voucher already vouched on the claim.
	Has(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (bool, error)

	// Get returns a copy of a single vouch.
	Get(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (*models.Vouch, error)

	// Update replaces a stored vouch (settlement flag and amount).
	Update(ctx context.Context, vouch *models.Vouch) error

	// ListByClaim returns the claim's vouches in cast order.
	ListByClaim(ctx context.Context, claimID domain.ClaimID) ([]*models.Vouch, error)
}

// CooldownKind distinguishes the two cooldown clocks kept per address.
type CooldownKind string

const (
	// CooldownFailedClaim throttles a subject after a rejected or expired
	// Link/Primary claim.
	CooldownFailedClaim CooldownKind = "failed_claim"

	// CooldownDuplicateFlag throttles a challenger after a rejected
	// duplicate flag.
	CooldownDuplicateFlag CooldownKind = "duplicate_flag"
)

// CooldownStore keeps the last-failure timestamps used to throttle repeat
// claims.
type CooldownStore interface {
	// Set records a failure at the given instant.
	Set(ctx context.Context, kind CooldownKind, addr domain.Address, at time.Time) error

	// Get returns the last failure instant, or ok=false if none recorded.
	Get(ctx context.Context, kind CooldownKind, addr domain.Address) (time.Time, bool, error)
}

// AuditPublisher emits audit events for protocol-relevant state changes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
