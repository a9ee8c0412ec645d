// Package scheduler runs periodic background jobs against the bottle store
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ActiveCounter recounts unpicked bottles and refreshes any cached value
type ActiveCounter interface {
	RefreshActiveCount(ctx context.Context) (int64, error)
}

// CountRefresher periodically recomputes the active bottle count so readers of
// GET /bottles/counts/active rarely fall through to the store
type CountRefresher struct {
	counter  ActiveCounter
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
}

func NewCountRefresher(counter ActiveCounter, logger *zap.Logger, interval, timeout time.Duration) *CountRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CountRefresher{
		counter:  counter,
		logger:   logger.Named("count_refresher"),
		interval: interval,
		timeout:  timeout,
	}
}

// Start runs one refresh immediately and then one per interval. The returned
// function stops the loop.
func (s *CountRefresher) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *CountRefresher) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	count, err := s.counter.RefreshActiveCount(runCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("failed to refresh active bottle count", zap.Error(err))
		return
	}
	s.logger.Debug("active bottle count refreshed", zap.Int64("total_active_bottles", count))
}
