package connector

import (
	"context"
	"log/slog"
	"time"
)

// retry calls fn until it succeeds, the attempts in cfg are spent or ctx is
// done. The delay starts at BaseDelay and grows by Backoff, capped at
// MaxDelay.
func retry(ctx context.Context, cfg *RetryConfig, logger *slog.Logger, fn func(context.Context) error) error {
	attempts := 1
	if cfg != nil && cfg.MaxRetries > 0 {
		attempts = cfg.MaxRetries
	}
	delay := time.Second
	backoff := 2.0
	var maxDelay time.Duration
	if cfg != nil {
		if cfg.BaseDelay > 0 {
			delay = cfg.BaseDelay
		}
		if cfg.Backoff >= 1 {
			backoff = cfg.Backoff
		}
		maxDelay = cfg.MaxDelay
	}

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		logger.Warn("connect failed, retrying", "attempt", i+1, "delay", delay, "error", err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * backoff)
		if maxDelay > 0 && delay > maxDelay {
			delay = maxDelay
		}
	}
	return err
}
