package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"datasetd/internal/apperrors"
)

// RetryPolicy bounds how long OpenWithRetry keeps polling an unreachable
// store. Attempts are spaced by a fixed Interval until Timeout elapses.
type RetryPolicy struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DefaultRetryPolicy polls every 2s for up to a minute.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Interval: 2 * time.Second, Timeout: 60 * time.Second}
}

// OpenWithRetry opens a Repository via New and pings it, retrying on failure
// with a fixed backoff until the policy timeout or ctx expires. Any failure
// to obtain a usable connection is reported wrapped in
// apperrors.ErrStoreUnavailable; an unregistered kind fails immediately.
func OpenWithRetry(ctx context.Context, cfg Config, p RetryPolicy, log *zap.Logger) (Repository, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if p.Interval <= 0 {
		p.Interval = DefaultRetryPolicy().Interval
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultRetryPolicy().Timeout
	}

	factoryMu.RLock()
	_, known := factories[cfg.Kind]
	factoryMu.RUnlock()
	if !known {
		return nil, fmt.Errorf("unsupported storage.kind=%s", cfg.Kind)
	}

	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	var lastErr error
	for attempt := 1; ; attempt++ {
		repo, err := New(ctx, cfg)
		if err == nil {
			if err = repo.Ping(ctx); err == nil {
				if attempt > 1 {
					log.Info("store connected", zap.String("kind", cfg.Kind), zap.Int("attempts", attempt))
				}
				return repo, nil
			}
			repo.Close()
		}
		lastErr = err
		log.Warn("store connect failed",
			zap.String("kind", cfg.Kind),
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", p.Interval),
			zap.Error(err),
		)

		t := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			if errors.Is(lastErr, context.DeadlineExceeded) || errors.Is(lastErr, context.Canceled) {
				lastErr = ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s after %d attempts: %w", apperrors.ErrStoreUnavailable, cfg.Kind, attempt, lastErr)
		case <-t.C:
		}
	}
}
