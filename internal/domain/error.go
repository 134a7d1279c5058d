package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Business rejections. Expected outcomes of normal traffic; returned to
	// the caller and matched with errors.Is, never logged as failures.
	ErrCodeNotFound    = errors.New("redemption code not found")
	ErrCodeAlreadyUsed = errors.New("redemption code already used")
	ErrCodeExpired     = errors.New("redemption code expired")
	ErrWrongVenue      = errors.New("redemption code belongs to another venue")
	ErrVenueNotFound   = errors.New("venue not found or inactive")
	ErrRateLimited     = errors.New("too many requests")

	// ErrMissingIssuer is a data-integrity rejection: anonymous issuance is
	// permitted, but a code without an issuer is not redeemable and may only
	// lapse or be superseded.
	ErrMissingIssuer = errors.New("live code has no issuer")

	// ErrCodeSpaceExhausted means the uniqueness retry budget ran out while
	// inserting a freshly generated code. Repeated occurrence indicates an
	// alphabet/length misconfiguration.
	ErrCodeSpaceExhausted = errors.New("could not generate a unique code")
)
