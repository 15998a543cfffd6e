package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	// DefaultSweepInterval is how often stale identities are evicted.
	DefaultSweepInterval = time.Minute
	// DefaultStaleAfter is how long past its window an identity may
	// linger before eviction.
	DefaultStaleAfter = 5 * time.Minute
)

// Sweeper bounds the limiter's memory by periodically evicting
// identities that have gone quiet. Without it, the tracked-identity
// map grows for the life of the process.
type Sweeper struct {
	limiter    *Limiter
	interval   time.Duration
	staleAfter time.Duration
	logger     *slog.Logger
	started    bool
}

// NewSweeper creates a Sweeper over limiter.
func NewSweeper(limiter *Limiter, interval, staleAfter time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Sweeper{
		limiter:    limiter,
		interval:   interval,
		staleAfter: staleAfter,
		logger:     logger.With("component", "ratelimit.sweeper"),
	}
}

// Run starts the sweep loop. Blocks until context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.started {
		return errors.New("sweeper already started")
	}
	s.started = true

	s.logger.Info("rate limit sweeper started",
		slog.Duration("interval", s.interval),
		slog.Duration("stale_after", s.staleAfter),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("rate limit sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
			removed := s.limiter.SweepStale(time.Now(), s.staleAfter)
			if removed > 0 {
				s.logger.Debug("evicted stale identities",
					slog.Int("removed", removed),
					slog.Int("tracked", s.limiter.Tracked()),
				)
			}
		}
	}
}
