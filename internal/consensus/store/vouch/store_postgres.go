package vouch

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"knomee/internal/consensus/models"
	"knomee/pkg/domain"
	dErrors "knomee/pkg/domain-errors"
	txcontext "knomee/pkg/platform/tx"
)

// PostgresStore persists vouches in PostgreSQL. The (claim_id, voucher)
// unique constraint is the durable double-vote guard.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed vouch store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the DDL for the vouch table, applied by migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS vouches (
    claim_id       BIGINT      NOT NULL,
    seq            INTEGER     NOT NULL,
    voucher        TEXT        NOT NULL,
    supporting     BOOLEAN     NOT NULL,
    weight         BIGINT      NOT NULL,
    stake          BIGINT      NOT NULL,
    vouched_at     TIMESTAMPTZ NOT NULL,
    reward_settled BOOLEAN     NOT NULL DEFAULT FALSE,
    settled_amount BIGINT      NOT NULL DEFAULT 0,
    PRIMARY KEY (claim_id, seq),
    UNIQUE (claim_id, voucher)
);
`

// uniqueViolation is the PostgreSQL error code for unique-constraint breaks.
const uniqueViolation = "23505"

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

func (s *PostgresStore) Append(ctx context.Context, v *models.Vouch) error {
	_, err := s.querier(ctx).ExecContext(ctx, `
		INSERT INTO vouches (claim_id, seq, voucher, supporting, weight, stake, vouched_at)
		SELECT $1, COALESCE(MAX(seq) + 1, 0), $2, $3, $4, $5, $6
		FROM vouches WHERE claim_id = $1`,
		int64(v.ClaimID), v.Voucher.String(), v.Supporting,
		int64(v.Weight), int64(v.Stake), v.VouchedAt.UTC(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return dErrors.Newf(dErrors.CodeStateConflict, "%s already vouched on claim %d", v.Voucher, v.ClaimID)
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "insert vouch")
	}
	return nil
}

func (s *PostgresStore) Has(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (bool, error) {
	var exists bool
	err := s.querier(ctx).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM vouches WHERE claim_id = $1 AND voucher = $2)`,
		int64(claimID), voucher.String(),
	).Scan(&exists)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "check vouch existence")
	}
	return exists, nil
}

func (s *PostgresStore) Get(ctx context.Context, claimID domain.ClaimID, voucher domain.Address) (*models.Vouch, error) {
	row := s.querier(ctx).QueryRowContext(ctx, `
		SELECT claim_id, voucher, supporting, weight, stake, vouched_at, reward_settled, settled_amount
		FROM vouches WHERE claim_id = $1 AND voucher = $2`,
		int64(claimID), voucher.String())
	v, err := scanVouch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "no vouch by %s on claim %d", voucher, claimID)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load vouch")
	}
	return v, nil
}

func (s *PostgresStore) Update(ctx context.Context, v *models.Vouch) error {
	res, err := s.querier(ctx).ExecContext(ctx, `
		UPDATE vouches SET reward_settled = $3, settled_amount = $4
		WHERE claim_id = $1 AND voucher = $2`,
		int64(v.ClaimID), v.Voucher.String(), v.RewardSettled, int64(v.SettledAmount))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "update vouch")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dErrors.Newf(dErrors.CodeNotFound, "no vouch by %s on claim %d", v.Voucher, v.ClaimID)
	}
	return nil
}

func (s *PostgresStore) ListByClaim(ctx context.Context, claimID domain.ClaimID) ([]*models.Vouch, error) {
	rows, err := s.querier(ctx).QueryContext(ctx, `
		SELECT claim_id, voucher, supporting, weight, stake, vouched_at, reward_settled, settled_amount
		FROM vouches WHERE claim_id = $1 ORDER BY seq`, int64(claimID))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list vouches")
	}
	defer rows.Close()

	var out []*models.Vouch
	for rows.Next() {
		v, err := scanVouch(rows)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "scan vouch")
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "iterate vouches")
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVouch(row rowScanner) (*models.Vouch, error) {
	var (
		v             models.Vouch
		claimID       int64
		voucher       string
		weight, stake int64
		settledAmt    int64
		vouchedAt     time.Time
	)
	err := row.Scan(&claimID, &voucher, &v.Supporting, &weight, &stake,
		&vouchedAt, &v.RewardSettled, &settledAmt)
	if err != nil {
		return nil, err
	}
	v.ClaimID = domain.ClaimID(claimID)
	v.Voucher = domain.Address(voucher)
	v.Weight = uint64(weight)
	v.Stake = uint64(stake)
	v.VouchedAt = vouchedAt
	v.SettledAmount = uint64(settledAmt)
	return &v, nil
}
