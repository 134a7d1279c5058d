package repository

import (
	"context"

	"discount-code-engine/internal/domain/model"
)

// VenueRepository is the read-only port onto the venue catalog.
type VenueRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Venue, error)
}
