package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.RedemptionCodeRepository = (*redemptionCodeRepo)(nil)

type redemptionCodeRepo struct {
	pool *pgxpool.Pool
}

func NewRedemptionCodeRepo(pool *pgxpool.Pool) repository.RedemptionCodeRepository {
	return &redemptionCodeRepo{pool: pool}
}

const uniqueViolation = "23505"

// Create inserts a new LIVE code. ON CONFLICT (code) DO NOTHING keeps a code
// collision from aborting the surrounding transaction; a zero rows-affected
// tag means the generated code already exists and the caller should retry
// with a fresh one.
func (r *redemptionCodeRepo) Create(ctx context.Context, tx repository.Tx, code *model.RedemptionCode) error {
	const q = `
INSERT INTO redemption_codes (id, venue_id, issuer_id, code, slug, status, created_at, expires_at, confirmed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (code) DO NOTHING;
`
	tag, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.VenueID, code.IssuerID, code.Code, code.Slug, code.Status, code.CreatedAt, code.ExpiresAt, code.ConfirmedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// slug/id collision; astronomically rare but report it the same way
			return domain.ErrAlreadyExists
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// FindByCode looks a code up regardless of status; the caller distinguishes
// not-found from already-used.
func (r *redemptionCodeRepo) FindByCode(ctx context.Context, tx repository.Tx, code string) (*model.RedemptionCode, error) {
	const q = `
SELECT id, venue_id, issuer_id, code, slug, status, created_at, expires_at, confirmed_at
  FROM redemption_codes
 WHERE code = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanCode(row)
}

func (r *redemptionCodeRepo) FindLive(ctx context.Context, tx repository.Tx, venueID string, issuerID *string) ([]*model.RedemptionCode, error) {
	q := `
SELECT id, venue_id, issuer_id, code, slug, status, created_at, expires_at, confirmed_at
  FROM redemption_codes
 WHERE venue_id = $1 AND status = 'LIVE'`
	args := []interface{}{venueID}
	if issuerID != nil {
		q += ` AND issuer_id = $2`
		args = append(args, *issuerID)
	}
	rows, err := querySQL(ctx, r.pool, tx, q+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RedemptionCode
	for rows.Next() {
		rc, err := scanCode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

func (r *redemptionCodeRepo) Confirm(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `
UPDATE redemption_codes
   SET status = 'CONFIRMED', confirmed_at = $2
 WHERE id = $1 AND status = 'LIVE';
`
	return r.casUpdate(ctx, tx, q, id, at)
}

func (r *redemptionCodeRepo) Cancel(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	const q = `
UPDATE redemption_codes
   SET status = 'CANCELLED', confirmed_at = $2
 WHERE id = $1 AND status = 'LIVE';
`
	return r.casUpdate(ctx, tx, q, id, at)
}

func (r *redemptionCodeRepo) Expire(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	const q = `
UPDATE redemption_codes
   SET status = 'EXPIRED'
 WHERE id = $1 AND status = 'LIVE';
`
	tag, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *redemptionCodeRepo) ExpireAllBefore(ctx context.Context, tx repository.Tx, cutoff time.Time) (int, error) {
	const q = `
UPDATE redemption_codes
   SET status = 'EXPIRED'
 WHERE status = 'LIVE' AND expires_at < $1;
`
	tag, err := execSQL(ctx, r.pool, tx, q, cutoff)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// AcquireContextLock serializes issuance per issuing context. The lock is
// transaction-scoped, so it only makes sense on a tx handle.
func (r *redemptionCodeRepo) AcquireContextLock(ctx context.Context, tx repository.Tx, key int64) error {
	if tx == nil {
		return domain.ErrInvalidExecContext
	}
	_, err := execSQL(ctx, r.pool, tx, `SELECT pg_advisory_xact_lock($1);`, key)
	return err
}

func (r *redemptionCodeRepo) casUpdate(ctx context.Context, tx repository.Tx, q, id string, at time.Time) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanCode(row pgx.Row) (*model.RedemptionCode, error) {
	var rc model.RedemptionCode
	err := row.Scan(
		&rc.ID, &rc.VenueID, &rc.IssuerID, &rc.Code, &rc.Slug, &rc.Status, &rc.CreatedAt, &rc.ExpiresAt, &rc.ConfirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &rc, nil
}
