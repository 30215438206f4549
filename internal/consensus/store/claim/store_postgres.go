package claim

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
	txcontext "knomee/pkg/platform/tx"
)

// PostgresStore persists claims in PostgreSQL. The claims table is
// append-mostly: rows are inserted once and updated only by the serialized
// engine, so no row locking beyond the engine's own is needed.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed claim store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the claim table, applied by migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS claims (
    id             BIGSERIAL PRIMARY KEY,
    kind           TEXT        NOT NULL,
    status         TEXT        NOT NULL,
    creator        TEXT        NOT NULL,
    subject        TEXT        NOT NULL,
    related        TEXT        NOT NULL DEFAULT '',
    platform       TEXT        NOT NULL DEFAULT '',
    justification  TEXT        NOT NULL,
    created_at     TIMESTAMPTZ NOT NULL,
    expires_at     TIMESTAMPTZ NOT NULL,
    weight_for     BIGINT      NOT NULL DEFAULT 0,
    weight_against BIGINT      NOT NULL DEFAULT 0,
    total_stake    BIGINT      NOT NULL DEFAULT 0,
    total_slashed  BIGINT      NOT NULL DEFAULT 0,
    vouch_count    INTEGER     NOT NULL DEFAULT 0,
    resolved       BOOLEAN     NOT NULL DEFAULT FALSE,
    early_adopter  BOOLEAN     NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS claims_creator_idx ON claims (creator);
CREATE INDEX IF NOT EXISTS claims_status_idx  ON claims (status);
`

type dbQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) querier(ctx context.Context) dbQuerier {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Claim) (domain.ClaimID, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		INSERT INTO claims (
			kind, status, creator, subject, related, platform, justification,
			created_at, expires_at, weight_for, weight_against,
			total_stake, total_slashed, vouch_count, resolved, early_adopter
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING id`,
		c.Kind.String(), c.Status.String(), c.Creator.String(), c.Subject.String(),
		c.Related.String(), c.Platform, c.Justification,
		c.CreatedAt.UTC(), c.ExpiresAt.UTC(),
		int64(c.WeightFor), int64(c.WeightAgainst),
		int64(c.TotalStake), int64(c.TotalSlashed), c.VouchCount, c.Resolved, c.EarlyAdopter,
	)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "insert claim")
	}
	c.ID = domain.ClaimID(id)
	return c.ID, nil
}

func (s *PostgresStore) Get(ctx context.Context, id domain.ClaimID) (*models.Claim, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT id, kind, status, creator, subject, related, platform, justification,
		       created_at, expires_at, weight_for, weight_against,
		       total_stake, total_slashed, vouch_count, resolved, early_adopter
		FROM claims WHERE id = $1`, int64(id))
	c, err := scanClaim(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "claim %d not found", id)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load claim")
	}
	return c, nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Claim) error {
	res, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE claims SET
			status = $2, weight_for = $3, weight_against = $4,
			total_stake = $5, total_slashed = $6, vouch_count = $7, resolved = $8
		WHERE id = $1`,
		int64(c.ID), c.Status.String(),
		int64(c.WeightFor), int64(c.WeightAgainst),
		int64(c.TotalStake), int64(c.TotalSlashed), c.VouchCount, c.Resolved,
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update claim")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "claim %d not found", c.ID)
	}
	return nil
}

func (s *PostgresStore) ByCreator(ctx context.Context, addr domain.Address) ([]domain.ClaimID, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT id FROM claims WHERE creator = $1 ORDER BY id`, addr.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list claims by creator")
	}
	defer rows.Close()
	return collectIDs(rows)
}

func (s *PostgresStore) ActiveIDs(ctx context.Context) ([]domain.ClaimID, error) {
	rows, err := s.querier(ctx).QueryContext(ctx,
		`SELECT id FROM claims WHERE status = $1 ORDER BY id`, models.StatusActive.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list active claims")
	}
	defer rows.Close()
	return collectIDs(rows)
}

func collectIDs(rows *sql.Rows) ([]domain.ClaimID, error) {
	var ids []domain.ClaimID
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan claim id")
		}
		ids = append(ids, domain.ClaimID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate claim ids")
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClaim(row rowScanner) (*models.Claim, error) {
	var (
		c                                  models.Claim
		id                                 int64
		kind, status, creator, subj, rel   string
		createdAt, expiresAt               time.Time
		wFor, wAgainst, tStake, tSlashed   int64
	)
	err := row.Scan(&id, &kind, &status, &creator, &subj, &rel,
		&c.Platform, &c.Justification, &createdAt, &expiresAt,
		&wFor, &wAgainst, &tStake, &tSlashed, &c.VouchCount, &c.Resolved, &c.EarlyAdopter)
	if err != nil {
		return nil, err
	}
	c.ID = domain.ClaimID(id)
	c.Kind = models.ClaimKind(kind)
	c.Status = models.ClaimStatus(status)
	c.Creator = domain.Address(creator)
	c.Subject = domain.Address(subj)
	c.Related = domain.Address(rel)
	c.CreatedAt = createdAt
	c.ExpiresAt = expiresAt
	c.WeightFor = uint64(wFor)
	c.WeightAgainst = uint64(wAgainst)
	c.TotalStake = uint64(tStake)
	c.TotalSlashed = uint64(tSlashed)
	return &c, nil
}
