package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"discount-code-engine/internal/domain"
)

type CodeStatus string

const (
	CodeStatusLive      CodeStatus = "LIVE"
	CodeStatusConfirmed CodeStatus = "CONFIRMED"
	CodeStatusCancelled CodeStatus = "CANCELLED"
	CodeStatusExpired   CodeStatus = "EXPIRED"
)

// CodeTTL is the validity window of every issued code.
const CodeTTL = 5 * time.Minute

// RedemptionCode is a short-lived, single-use discount code issued for a
// venue visit. The code string is a bearer credential typed into a partner
// terminal; the slug is an opaque secondary identifier for machine-to-machine
// references. Records are never deleted by the engine, only transitioned.
type RedemptionCode struct {
	ID        string
	VenueID   string
	IssuerID  *string // nil for anonymous issuance
	Code      string
	Slug      string
	Status    CodeStatus
	CreatedAt time.Time
	ExpiresAt time.Time
	// ConfirmedAt is stamped on LIVE->CONFIRMED; on supersession it records
	// when the code was closed instead.
	ConfirmedAt *time.Time
}

// NewRedemptionCode creates a live code for a venue. issuerID may be nil.
func NewRedemptionCode(venueID string, issuerID *string, code string, now time.Time) (*RedemptionCode, error) {
	if venueID == "" || code == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &RedemptionCode{
		ID:        uuid.NewString(),
		VenueID:   venueID,
		IssuerID:  issuerID,
		Code:      code,
		Slug:      ulid.Make().String(),
		Status:    CodeStatusLive,
		CreatedAt: now,
		ExpiresAt: now.Add(CodeTTL),
	}, nil
}

func (c *RedemptionCode) IsLive() bool { return c != nil && c.Status == CodeStatusLive }

// ExpiredAt reports whether the code's TTL has elapsed at the given instant.
func (c *RedemptionCode) ExpiredAt(now time.Time) bool { return !now.Before(c.ExpiresAt) }

// NormalizeCode maps terminal input to the canonical stored form.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
