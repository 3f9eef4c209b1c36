package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/madison-studio/madison-connect/internal/core/ports/driven"
)

const janitorLockName = "oauth-state-janitor"

// StateJanitor periodically removes expired, never-consumed OAuth states.
//
// For multi-instance deployments, configure a DistributedLock so only one
// instance sweeps per cycle.
type StateJanitor struct {
	store    driven.OAuthStateStore
	lock     driven.DistributedLock
	metrics  driven.FlowMetrics
	logger   *slog.Logger
	interval time.Duration
	lockTTL  time.Duration
}

// StateJanitorConfig holds configuration for the state janitor.
type StateJanitorConfig struct {
	Store    driven.OAuthStateStore
	Lock     driven.DistributedLock // Optional
	Metrics  driven.FlowMetrics     // Optional
	Logger   *slog.Logger
	Interval time.Duration // How often to sweep (default: 1h)
	LockTTL  time.Duration // TTL for the sweep lock (default: 5m)
}

// NewStateJanitor creates a new state janitor.
func NewStateJanitor(cfg StateJanitorConfig) *StateJanitor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}

	return &StateJanitor{
		store:    cfg.Store,
		lock:     cfg.Lock,
		metrics:  metrics,
		logger:   logger,
		interval: interval,
		lockTTL:  lockTTL,
	}
}

// Run sweeps immediately and then on every interval until ctx is cancelled.
func (j *StateJanitor) Run(ctx context.Context) error {
	j.logger.Info("state janitor starting", "interval", j.interval)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("state janitor stopped")
			return nil
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

// SweepOnce removes expired states once and returns how many were removed.
func (j *StateJanitor) SweepOnce(ctx context.Context) (int64, error) {
	removed, err := j.store.Cleanup(ctx)
	if err != nil {
		return 0, err
	}
	j.metrics.StatesCleaned(removed)
	return removed, nil
}

func (j *StateJanitor) sweep(ctx context.Context) {
	if j.lock != nil {
		acquired, err := j.lock.Acquire(ctx, janitorLockName, j.lockTTL)
		if err != nil {
			j.logger.Warn("failed to acquire janitor lock", "error", err)
			return
		}
		if !acquired {
			j.logger.Debug("janitor lock held by another instance, skipping cycle")
			return
		}
		defer func() {
			if err := j.lock.Release(context.WithoutCancel(ctx), janitorLockName); err != nil {
				j.logger.Warn("failed to release janitor lock", "error", err)
			}
		}()
	}

	removed, err := j.SweepOnce(ctx)
	if err != nil {
		j.logger.Error("failed to clean up oauth states", "error", err)
		return
	}
	if removed > 0 {
		j.logger.Info("removed expired oauth states", "count", removed)
	}
}
