package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/studyshare-auth/internal/observability"
)

// ErrSweepInProgress is returned by RunOnce when another sweep is running.
var ErrSweepInProgress = errors.New("revocation sweep already in progress")

// Pruner removes revocation entries whose original expiry has passed.
type Pruner interface {
	PruneExpiredBefore(ctx context.Context, now time.Time) (int64, error)
}

// RevocationSweeper periodically prunes the revocation ledger. Sweeps never
// overlap: a tick or manual trigger that arrives while a sweep is running is
// skipped.
type RevocationSweeper struct {
	ledger   Pruner
	interval time.Duration
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	running atomic.Bool
	wg      sync.WaitGroup
}

// SweeperOption customises a RevocationSweeper.
type SweeperOption func(*RevocationSweeper)

// WithSweeperClock overrides the time source used as the prune cutoff.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *RevocationSweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRevocationSweeper builds a sweeper; it does nothing until Start or RunOnce.
func NewRevocationSweeper(ledger Pruner, interval time.Duration, logger *zap.Logger, metrics *observability.Metrics, opts ...SweeperOption) *RevocationSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	s := &RevocationSweeper{
		ledger:   ledger,
		interval: interval,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunOnce performs a single sweep with the current time as cutoff.
func (s *RevocationSweeper) RunOnce(ctx context.Context) (int64, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.running.Store(false)

	now := s.now()
	removed, err := s.ledger.PruneExpiredBefore(ctx, now)
	s.metrics.RecordSweep(removed, err, now)
	if err != nil {
		s.logger.Error("revocation sweep failed", zap.Error(err))
		return 0, err
	}

	s.logger.Info("revocation sweep finished", zap.Int64("removed", removed), zap.Time("cutoff", now))
	return removed, nil
}

// Start sweeps once immediately and then on every interval until ctx is
// cancelled. Failures are logged and the schedule continues.
func (s *RevocationSweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Info("revocation sweeper started", zap.Duration("interval", s.interval))

		s.tick(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info("revocation sweeper stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Wait blocks until the goroutine launched by Start has returned.
func (s *RevocationSweeper) Wait() {
	s.wg.Wait()
}

func (s *RevocationSweeper) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.RunOnce(ctx); errors.Is(err, ErrSweepInProgress) {
		s.logger.Debug("revocation sweep skipped; previous sweep still running")
	}
}
