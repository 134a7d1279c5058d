package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/domain/ports/repository"
	"discount-code-engine/internal/infra/metrics"
)

// ConfirmUseCase validates a typed-in code at a partner terminal and
// transitions it LIVE->CONFIRMED. The final write is a compare-and-set on the
// record still being LIVE; when two confirmations race, exactly one wins and
// the loser observes ALREADY_USED.
type ConfirmUseCase struct {
	codes   repository.RedemptionCodeRepository
	limiter adapter.AdmissionLimiter
	clock   adapter.Clock
	log     *zerolog.Logger
}

func NewConfirmUseCase(
	codes repository.RedemptionCodeRepository,
	limiter adapter.AdmissionLimiter,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *ConfirmUseCase {
	l := logger.With().Str("component", "ConfirmUseCase").Logger()
	return &ConfirmUseCase{codes: codes, limiter: limiter, clock: clock, log: &l}
}

// Confirm checks the code against the confirming venue. Rejections come back
// as domain sentinel errors, evaluated in order and short-circuiting:
// ErrCodeNotFound, ErrCodeExpired (with a lazy transition to EXPIRED),
// ErrCodeAlreadyUsed, ErrWrongVenue, ErrMissingIssuer.
func (uc *ConfirmUseCase) Confirm(ctx context.Context, rawCode, venueID string) error {
	code := model.NormalizeCode(rawCode)
	if code == "" || venueID == "" {
		return domain.ErrInvalidArgument
	}

	ok, err := uc.limiter.Allow(ctx, "confirm:venue:"+venueID)
	if err != nil {
		return fmt.Errorf("admission check: %w", err)
	}
	if !ok {
		return domain.ErrRateLimited
	}

	rc, err := uc.codes.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrCodeNotFound
		}
		return err
	}

	now := uc.clock.Now()

	// Lazy expiry: the sweeper may not have run yet. This check is enforced
	// here and in the status reader independently; either entry point must be
	// correct even if the other is bypassed.
	if rc.IsLive() && rc.ExpiredAt(now) {
		if _, err := uc.codes.Expire(ctx, nil, rc.ID); err != nil {
			return err
		}
		metrics.IncCodesExpired(1)
		return domain.ErrCodeExpired
	}

	if !rc.IsLive() {
		return domain.ErrCodeAlreadyUsed
	}

	// Wrong-venue rejection never mutates; a partner must not learn more
	// about a foreign code than this.
	if rc.VenueID != venueID {
		return domain.ErrWrongVenue
	}

	// Anonymous codes exist but are not redeemable; they lapse or get
	// superseded. Guarded here rather than at issuance.
	if rc.IssuerID == nil {
		uc.log.Warn().Str("code_id", rc.ID).Str("venue_id", rc.VenueID).Msg("confirmation attempted on code without issuer")
		return domain.ErrMissingIssuer
	}

	won, err := uc.codes.Confirm(ctx, nil, rc.ID, now)
	if err != nil {
		return err
	}
	if !won {
		// Lost the compare-and-set to a concurrent confirmation or sweep.
		return domain.ErrCodeAlreadyUsed
	}

	metrics.IncCodesConfirmed()
	uc.log.Info().Str("code_id", rc.ID).Str("venue_id", venueID).Msg("code confirmed")
	return nil
}
