package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain"
	"discount-code-engine/internal/domain/model"
	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/domain/ports/repository"
	"discount-code-engine/internal/infra/metrics"
)

// IssueUseCase owns the single-live-code-per-context invariant. Superseding
// the previous live codes and inserting the replacement happen inside one
// transaction under an advisory lock on the issuing context, so two
// concurrent issuances for the same context serialize instead of both
// observing zero live codes.
//
// Scope of the invariant: anonymous issuance supersedes every live code of
// the venue; authenticated issuance supersedes only the caller's own live
// codes at that venue. The two entry points are not interchangeable.
type IssueUseCase struct {
	codes   repository.RedemptionCodeRepository
	venues  repository.VenueRepository
	tm      repository.TransactionManager
	limiter adapter.AdmissionLimiter
	clock   adapter.Clock
	log     *zerolog.Logger
}

func NewIssueUseCase(
	codes repository.RedemptionCodeRepository,
	venues repository.VenueRepository,
	tm repository.TransactionManager,
	limiter adapter.AdmissionLimiter,
	clock adapter.Clock,
	logger *zerolog.Logger,
) *IssueUseCase {
	l := logger.With().Str("component", "IssueUseCase").Logger()
	return &IssueUseCase{codes: codes, venues: venues, tm: tm, limiter: limiter, clock: clock, log: &l}
}

// Issue supersedes any live code for the issuing context and durably creates
// a new one, returning it with code, slug and expiry populated.
func (uc *IssueUseCase) Issue(ctx context.Context, venueID string, issuerID *string) (*model.RedemptionCode, error) {
	if venueID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if issuerID != nil && *issuerID == "" {
		return nil, domain.ErrInvalidArgument
	}

	ok, err := uc.limiter.Allow(ctx, issueAdmissionKey(venueID, issuerID))
	if err != nil {
		return nil, fmt.Errorf("admission check: %w", err)
	}
	if !ok {
		return nil, domain.ErrRateLimited
	}

	venue, err := uc.venues.FindByID(ctx, nil, venueID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrVenueNotFound
		}
		return nil, err
	}
	if !venue.Active {
		return nil, domain.ErrVenueNotFound
	}

	baseLength := venueCodeLength
	if issuerID != nil {
		baseLength = issuerCodeLength
	}

	var issued *model.RedemptionCode
	err = uc.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		if err := uc.codes.AcquireContextLock(ctx, tx, issuingContextKey(venueID, issuerID)); err != nil {
			return fmt.Errorf("context lock: %w", err)
		}

		now := uc.clock.Now()
		live, err := uc.codes.FindLive(ctx, tx, venueID, issuerID)
		if err != nil {
			return err
		}
		for _, old := range live {
			if _, err := uc.codes.Cancel(ctx, tx, old.ID, now); err != nil {
				return err
			}
		}
		if n := len(live); n > 0 {
			metrics.AddCodesCancelled(n)
		}

		for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
			codeStr, err := generateCode(baseLength, attempt)
			if err != nil {
				return err
			}
			rc, err := model.NewRedemptionCode(venueID, issuerID, codeStr, now)
			if err != nil {
				return err
			}
			err = uc.codes.Create(ctx, tx, rc)
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			if err != nil {
				return err
			}
			issued = rc
			return nil
		}
		return domain.ErrCodeSpaceExhausted
	})
	if err != nil {
		if errors.Is(err, domain.ErrCodeSpaceExhausted) {
			uc.log.Error().Str("venue_id", venueID).Msg("code generation exhausted retry budget")
		}
		return nil, err
	}

	metrics.IncCodesIssued()
	uc.log.Info().Str("venue_id", venueID).Str("slug", issued.Slug).Time("expires_at", issued.ExpiresAt).Msg("code issued")
	return issued, nil
}

func issueAdmissionKey(venueID string, issuerID *string) string {
	if issuerID != nil {
		return "issue:user:" + *issuerID
	}
	return "issue:venue:" + venueID
}

// issuingContextKey hashes the issuing context into the int64 keyspace of
// pg_advisory_xact_lock.
func issuingContextKey(venueID string, issuerID *string) int64 {
	h := fnv.New64a()
	h.Write([]byte(venueID))
	if issuerID != nil {
		h.Write([]byte{0})
		h.Write([]byte(*issuerID))
	}
	return int64(h.Sum64() & ((1 << 63) - 1))
}
