package keys

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// DefaultRotateInterval is how often the rotator re-checks key validity.
// Keys live 24h by default, so an hourly check replaces them long
// before the store can run dry.
const DefaultRotateInterval = time.Hour

// Rotator periodically re-invokes EnsureValidKey so that a non-expired
// key exists even across the configured key TTL without a restart.
type Rotator struct {
	manager  *Manager
	interval time.Duration
	logger   *slog.Logger
	started  bool
}

// NewRotator creates a Rotator around manager.
func NewRotator(manager *Manager, interval time.Duration, logger *slog.Logger) *Rotator {
	if interval <= 0 {
		interval = DefaultRotateInterval
	}
	return &Rotator{
		manager:  manager,
		interval: interval,
		logger:   logger.With("component", "keys.rotator"),
	}
}

// Run starts the rotation loop. Blocks until context is cancelled.
func (r *Rotator) Run(ctx context.Context) error {
	if r.started {
		return errors.New("rotator already started")
	}
	r.started = true

	r.logger.Info("key rotator started", slog.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("key rotator stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := r.manager.EnsureValidKey(ctx, time.Now()); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				r.logger.Error("rotation check failed", "error", err)
			}
		}
	}
}
