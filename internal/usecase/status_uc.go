package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/domain/ports/repository"
	"discount-code-engine/internal/infra/metrics"
)

// StatusUseCase is the read-only lookup. It never reports a code as LIVE past
// its TTL: a live-but-expired record is transitioned to EXPIRED before the
// result is returned, independently of the identical check in confirmation.
type StatusUseCase struct {
	codes repository.RedemptionCodeRepository
	clock adapter.Clock
	log   *zerolog.Logger
}

func NewStatusUseCase(codes repository.RedemptionCodeRepository, clock adapter.Clock, logger *zerolog.Logger) *StatusUseCase {
	l := logger.With().Str("component", "StatusUseCase").Logger()
	return &StatusUseCase{codes: codes, clock: clock, log: &l}
}

func (uc *StatusUseCase) Status(ctx context.Context, rawCode string) (*model.RedemptionCode, error) {
	code := model.NormalizeCode(rawCode)
	if code == "" {
		return nil, domain.ErrInvalidArgument
	}

	rc, err := uc.codes.FindByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrCodeNotFound
		}
		return nil, err
	}

	if rc.IsLive() && rc.ExpiredAt(uc.clock.Now()) {
		won, err := uc.codes.Expire(ctx, nil, rc.ID)
		if err != nil {
			return nil, err
		}
		if won {
			metrics.IncCodesExpired(1)
			rc.Status = model.CodeStatusExpired
		} else {
			// Raced with a concurrent confirm or sweep; report whatever the
			// record settled on.
			rc, err = uc.codes.FindByCode(ctx, nil, code)
			if err != nil {
				return nil, err
			}
		}
	}
	return rc, nil
}
