package repository

import (
	"context"
	"time"

	"discount-code-engine/internal/domain/model"
)

// RedemptionCodeRepository is the port for the durable code store. Every
// state transition is a compare-and-set conditioned on the record still being
// LIVE at write time; the bool result reports whether this caller won the
// transition.
type RedemptionCodeRepository interface {
	// Create inserts a new LIVE code. Returns domain.ErrAlreadyExists when
	// the code string collides with any record ever created.
	Create(ctx context.Context, tx Tx, code *model.RedemptionCode) error
	// FindByCode looks a code up regardless of status.
	FindByCode(ctx context.Context, tx Tx, code string) (*model.RedemptionCode, error)
	// FindLive returns all LIVE codes for a venue, narrowed to a single
	// issuer when issuerID is non-nil.
	FindLive(ctx context.Context, tx Tx, venueID string, issuerID *string) ([]*model.RedemptionCode, error)
	// Confirm transitions LIVE->CONFIRMED, stamping ConfirmedAt.
	Confirm(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
	// Cancel transitions LIVE->CANCELLED, stamping ConfirmedAt as the
	// closed-at marker.
	Cancel(ctx context.Context, tx Tx, id string, at time.Time) (bool, error)
	// Expire transitions LIVE->EXPIRED.
	Expire(ctx context.Context, tx Tx, id string) (bool, error)
	// ExpireAllBefore transitions every LIVE code whose expiry precedes the
	// cutoff and returns how many it moved.
	ExpireAllBefore(ctx context.Context, tx Tx, cutoff time.Time) (int, error)
	// AcquireContextLock takes a transaction-scoped advisory lock on an
	// issuing context. Requires a transactional handle.
	AcquireContextLock(ctx context.Context, tx Tx, key int64) error
}
