package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain/ports/repository"
)

// SweepUseCase bulk-expires overdue live codes. Pure maintenance: it only
// ever moves LIVE->EXPIRED, so it is safe to run concurrently with itself and
// with every other operation. Scheduling is the caller's concern.
type SweepUseCase struct {
	codes repository.RedemptionCodeRepository
	log   *zerolog.Logger
}

func NewSweepUseCase(codes repository.RedemptionCodeRepository, logger *zerolog.Logger) *SweepUseCase {
	l := logger.With().Str("component", "SweepUseCase").Logger()
	return &SweepUseCase{codes: codes, log: &l}
}

// Sweep transitions every LIVE code with expiry before now and returns the
// count of records it moved. Idempotent: a second run with no new
// expirations reports zero.
func (uc *SweepUseCase) Sweep(ctx context.Context, now time.Time) (int, error) {
	return uc.codes.ExpireAllBefore(ctx, nil, now)
}
