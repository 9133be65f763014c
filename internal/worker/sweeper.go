// Package worker runs the periodic maintenance passes of the reservation engine.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/SafalBhandari12/sojournBackend-sub001/internal/pkg/lease"
)

const leaseKey = "reservation-sweeper"

// ReservationSweeper releases lapsed holds and completes finished stays.
type ReservationSweeper interface {
	ReleaseExpiredHolds(ctx context.Context) (int, error)
	CompleteElapsed(ctx context.Context) (int, error)
}

// RefundRetrier settles refunds that failed or never got an answer.
type RefundRetrier interface {
	RetryRefunds(ctx context.Context) (int, error)
}

// Sweeper ticks every interval and runs one pass per tick. With a Locker,
// a pass only runs on the replica holding the lease.
type Sweeper struct {
	reservations ReservationSweeper
	refunds      RefundRetrier
	locker       lease.Locker
	interval     time.Duration
	logger       *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

func NewSweeper(reservations ReservationSweeper, refunds RefundRetrier, locker lease.Locker, interval time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		reservations: reservations,
		refunds:      refunds,
		locker:       locker,
		interval:     interval,
		logger:       logger,
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
	}
}

// Start blocks until ctx is done or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.InfoContext(ctx, "sweeper started", slog.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped", slog.String("cause", "context done"))
			return
		case <-s.stopCh:
			s.logger.Info("sweeper stopped", slog.String("cause", "stop requested"))
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop asks Start to return and waits for the running pass to finish.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// RunOnce performs a single pass. Each step runs even if an earlier one failed.
func (s *Sweeper) RunOnce(ctx context.Context) {
	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, leaseKey, s.leaseTTL())
		if err != nil {
			s.logger.ErrorContext(ctx, "sweeper lease unavailable", slog.Any("error", err))
			return
		}
		if !ok {
			s.logger.DebugContext(ctx, "sweeper lease held elsewhere, skipping pass")
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.WarnContext(ctx, "release sweeper lease failed", slog.Any("error", err))
			}
		}()
	}

	s.step(ctx, "release expired holds", s.reservations.ReleaseExpiredHolds)
	s.step(ctx, "complete elapsed stays", s.reservations.CompleteElapsed)
	if s.refunds != nil {
		s.step(ctx, "retry refunds", s.refunds.RetryRefunds)
	}
}

func (s *Sweeper) step(ctx context.Context, name string, fn func(context.Context) (int, error)) {
	n, err := fn(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep step failed",
			slog.String("step", name),
			slog.Int("processed", n),
			slog.Any("error", err),
		)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "sweep step done", slog.String("step", name), slog.Int("processed", n))
	}
}

// leaseTTL outlives a normal pass but frees the lease soon after a crashed holder.
func (s *Sweeper) leaseTTL() time.Duration {
	if s.interval <= 0 {
		return time.Minute
	}
	return 2 * s.interval
}
