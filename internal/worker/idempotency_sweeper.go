package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ExpiredSweeper removes expired ledger entries.
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context) (int64, error)
}

// IdempotencySweeper periodically purges expired idempotency records.
type IdempotencySweeper struct {
	ledger   ExpiredSweeper
	interval time.Duration
	logger   *zap.Logger
}

// NewIdempotencySweeper builds a sweeper running every interval.
func NewIdempotencySweeper(ledger ExpiredSweeper, interval time.Duration, logger *zap.Logger) *IdempotencySweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &IdempotencySweeper{ledger: ledger, interval: interval, logger: logger.Named("idempotency-sweeper")}
}

// Run sweeps immediately and then on every tick until ctx is done.
func (s *IdempotencySweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.SweepOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("idempotency sweep failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SweepOnce runs a single sweep.
func (s *IdempotencySweeper) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := s.ledger.SweepExpired(ctx)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.Info("expired idempotency records removed", zap.Int64("count", removed))
	}
	return removed, nil
}
