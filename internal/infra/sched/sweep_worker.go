package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"discount-code-engine/internal/domain/ports/adapter"
	"discount-code-engine/internal/infra/metrics"
	"discount-code-engine/internal/usecase"
)

// SweepWorker periodically expires overdue live codes via the sweep use case.
// The engine does not self-schedule; this worker is the scheduler host.
type SweepWorker struct {
	interval time.Duration
	sweepUC  *usecase.SweepUseCase
	clock    adapter.Clock
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, sweepUC *usecase.SweepUseCase, clock adapter.Clock, logger *zerolog.Logger) *SweepWorker {
	l := logger.With().Str("component", "SweepWorker").Logger()
	return &SweepWorker{
		interval: interval,
		sweepUC:  sweepUC,
		clock:    clock,
		log:      &l,
	}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("starting sweep worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("stopping sweep worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.sweepUC.Sweep(ctx, w.clock.Now())
			if err != nil {
				w.log.Error().Err(err).Msg("sweep error")
				continue
			}
			if n > 0 {
				metrics.IncCodesExpired(n)
				w.log.Info().Int("count", n).Msg("expired codes swept")
			}
		}
	}
}
