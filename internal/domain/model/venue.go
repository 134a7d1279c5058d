package model

import (
	"time"

	"github.com/google/uuid"

	"discount-code-engine/internal/domain"
)

// Venue is the issuing context for redemption codes. The engine only reads
// venues; catalog management lives in the web tier.
type Venue struct {
	ID        string
	Name      string
	Active    bool
	CreatedAt time.Time
}

func NewVenue(id, name string) (*Venue, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if name == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Venue{
		ID:        id,
		Name:      name,
		Active:    true,
		CreatedAt: time.Now(),
	}, nil
}
