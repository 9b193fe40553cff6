package background

import (
	"context"
	"log/slog"
	"time"
)

// LockoutCompactionStore deactivates lockouts whose window has passed
type LockoutCompactionStore interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// AttemptCompactionStore prunes login attempts past the retention horizon
type AttemptCompactionStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetTokenCompactionStore prunes reset tokens that can no longer be redeemed
type ResetTokenCompactionStore interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Compactor periodically retires expired lockouts and prunes stale attempt
// and reset-token rows. Lockout enforcement never depends on it: expired
// lockouts stop counting at query time regardless of when compaction runs.
type Compactor struct {
	lockouts  LockoutCompactionStore
	attempts  AttemptCompactionStore
	tokens    ResetTokenCompactionStore
	logger    *slog.Logger
	interval  time.Duration
	retention time.Duration
	stopCh    chan struct{}
}

// NewCompactor creates a new compactor
func NewCompactor(
	lockouts LockoutCompactionStore,
	attempts AttemptCompactionStore,
	tokens ResetTokenCompactionStore,
	logger *slog.Logger,
	interval time.Duration,
	retention time.Duration,
) *Compactor {
	return &Compactor{
		lockouts:  lockouts,
		attempts:  attempts,
		tokens:    tokens,
		logger:    logger,
		interval:  interval,
		retention: retention,
		stopCh:    make(chan struct{}),
	}
}

// Start begins the periodic compaction task
func (c *Compactor) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	// Run immediately on startup
	c.runCompaction(ctx)

	for {
		select {
		case <-ticker.C:
			c.runCompaction(ctx)
		case <-c.stopCh:
			c.logger.Info("compactor stopped")
			return
		case <-ctx.Done():
			c.logger.Info("compactor context cancelled")
			return
		}
	}
}

// runCompaction performs one sweep. Each step is independent: a failure in
// one does not skip the others.
func (c *Compactor) runCompaction(ctx context.Context) {
	compactCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now()

	retired, err := c.lockouts.DeactivateExpired(compactCtx, now)
	if err != nil {
		c.logger.Error("failed to retire expired lockouts", slog.Any("error", err))
	} else if retired > 0 {
		c.logger.Info("retired expired lockouts", slog.Int64("rows", retired))
	}

	pruned, err := c.attempts.DeleteOlderThan(compactCtx, now.Add(-c.retention))
	if err != nil {
		c.logger.Error("failed to prune old login attempts", slog.Any("error", err))
	} else if pruned > 0 {
		c.logger.Info("pruned old login attempts", slog.Int64("rows", pruned))
	}

	removed, err := c.tokens.DeleteExpired(compactCtx, now)
	if err != nil {
		c.logger.Error("failed to remove expired reset tokens", slog.Any("error", err))
	} else if removed > 0 {
		c.logger.Info("removed expired reset tokens", slog.Int64("rows", removed))
	}
}

// Stop signals the compactor to stop
func (c *Compactor) Stop() {
	close(c.stopCh)
}
