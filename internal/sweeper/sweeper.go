// Package sweeper deletes expired holds on a fixed cadence.
package sweeper

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fwextensions/reserve-bed-poc/internal/app"
	"github.com/fwextensions/reserve-bed-poc/internal/lease"
)

// HoldSweeper is the one service operation the sweeper drives.
type HoldSweeper interface {
	SweepExpiredHolds(ctx context.Context) (app.SweepResult, error)
}

// SweptCounter receives the number of holds deleted per sweep.
type SweptCounter interface {
	AddSwept(n int)
}

type Sweeper struct {
	holds    HoldSweeper
	lease    lease.Lease
	interval time.Duration
	logger   *zap.Logger
	counter  SweptCounter
}

type Option func(*Sweeper)

func WithLease(l lease.Lease) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.lease = l
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Sweeper) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithCounter(c SweptCounter) Option {
	return func(s *Sweeper) { s.counter = c }
}

func New(holds HoldSweeper, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s := &Sweeper{
		holds:    holds,
		lease:    lease.Local{},
		interval: interval,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("hold sweeper started", zap.Duration("interval", s.interval))
	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.release()
			s.logger.Info("hold sweeper stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs a single sweep if this replica holds the lease. It returns the
// number of holds deleted.
func (s *Sweeper) Tick(ctx context.Context) int {
	ok, err := s.lease.Acquire(ctx, s.interval)
	if err != nil {
		s.logger.Error("acquire sweeper lease", zap.Error(err))
		return 0
	}
	if !ok {
		s.logger.Debug("sweeper lease held elsewhere")
		return 0
	}

	res, err := s.holds.SweepExpiredHolds(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("sweep expired holds", zap.Error(err))
		}
		return 0
	}
	if res.DeletedCount > 0 {
		s.logger.Debug("swept expired holds", zap.Int("deleted", res.DeletedCount))
		if s.counter != nil {
			s.counter.AddSwept(res.DeletedCount)
		}
	}
	return res.DeletedCount
}

func (s *Sweeper) release() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.lease.Release(ctx); err != nil {
		s.logger.Warn("release sweeper lease", zap.Error(err))
	}
}
