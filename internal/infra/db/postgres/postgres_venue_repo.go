package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/repository"
)

var _ repository.VenueRepository = (*venueRepo)(nil)

type venueRepo struct {
	pool *pgxpool.Pool
}

func NewVenueRepo(pool *pgxpool.Pool) repository.VenueRepository {
	return &venueRepo{pool: pool}
}

func (r *venueRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Venue, error) {
	const q = `
SELECT id, name, active, created_at
  FROM venues
 WHERE id = $1;
`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var v model.Venue
	if err := row.Scan(&v.ID, &v.Name, &v.Active, &v.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &v, nil
}
