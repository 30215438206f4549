// Package service implements the claim-and-consensus engine: claim creation,
// weighted stake-backed vouching, threshold resolution, and reward/slash
// settlement.
//
// The engine mirrors a replicated ledger's execution model: every
// state-mutating operation runs serialized behind one mutex, observes a fully
// consistent prior state, and either completes entirely or fails with zero
// partial mutation. External collaborators (token ledger, identity registry)
// are called only while the reentrancy guard is armed, so a malicious
// implementation calling back into the engine is rejected instead of
// observing in-flight state.
package service

import (
	"context"
	"database/sql"
	"log/slog"
	"sync"

	"knomee/internal/audit"
	"knomee/internal/consensus/metrics"
	"knomee/internal/consensus/ports"
	"knomee/internal/governance"
	"knomee/internal/identity"
	"knomee/internal/token"
	dErrors "knomee/pkg/domain-errors"
	"knomee/pkg/platform/tx"
)

// Service is the consensus engine.
type Service struct {
	// mu serializes all state-mutating operations; the engine is the single
	// transaction boundary for claims, vouches, custody and cooldowns.
	mu sync.Mutex

	claims    ports.ClaimStore
	vouches   ports.VouchStore
	cooldowns ports.CooldownStore

	// db, when set, makes every mutating operation run its claim and vouch
	// writes inside one SQL transaction. Nil with memory stores.
	db *sql.DB

	registry identity.Registry
	weights  identity.WeightSource
	ledger   token.Ledger

	gov   *governance.Governance
	clock *governance.Clock

	logger  *slog.Logger
	auditor ports.AuditPublisher
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithAuditPublisher attaches an audit sink.
func WithAuditPublisher(p ports.AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithDB attaches the database behind the Postgres-backed stores so mutating
// operations run transactionally.
func WithDB(db *sql.DB) Option {
	return func(s *Service) { s.db = db }
}

// New creates the engine. All collaborators are required; options are not.
func New(
	claims ports.ClaimStore,
	vouches ports.VouchStore,
	cooldowns ports.CooldownStore,
	registry identity.Registry,
	weights identity.WeightSource,
	ledger token.Ledger,
	gov *governance.Governance,
	clock *governance.Clock,
	opts ...Option,
) (*Service, error) {
	if claims == nil || vouches == nil || cooldowns == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "claim, vouch and cooldown stores are required")
	}
	if registry == nil || weights == nil || ledger == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "registry, weight source and ledger are required")
	}
	if gov == nil || clock == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "governance and clock are required")
	}

	s := &Service{
		claims:    claims,
		vouches:   vouches,
		cooldowns: cooldowns,
		registry:  registry,
		weights:   weights,
		ledger:    ledger,
		gov:       gov,
		clock:     clock,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// begin enters the engine's critical section. It rejects reentrant calls
// (contexts already marked by an in-flight operation) before touching the
// mutex, then marks the context for the external calls made inside.
func (s *Service) begin(ctx context.Context) (context.Context, func(), error) {
	if inFlight(ctx) {
		return nil, nil, dErrors.New(dErrors.CodeStateConflict, "reentrant call rejected")
	}
	s.mu.Lock()
	return markInFlight(ctx), s.mu.Unlock, nil
}

// transact runs fn inside a single SQL transaction when a database is wired.
// The transaction rides the context; the Postgres stores pick it up for every
// statement, and an error anywhere rolls back all of them. Without a database
// fn runs against the stores directly.
func (s *Service) transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.db == nil {
		return fn(ctx)
	}

	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = dbTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, dbTx)); err != nil {
		return err
	}
	if err := dbTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}

// logAudit logs the event and forwards it to the audit sink if configured.
func (s *Service) logAudit(ctx context.Context, event audit.Event, attrs ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.Action, append(attrs, "claim_id", event.ClaimID)...)
	}
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
