package ytchat

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// StartRefresher launches a goroutine that keeps the active credential's
// access token fresh so sends rarely pay the refresh round-trip inline.
// interval: how often to wake up and check.
// window: refresh when remaining lifetime <= window.
func StartRefresher(ctx context.Context, pool *Pool, interval, window time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			pool.mu.RLock()
			remaining := time.Until(pool.expiresAt)
			hasToken := pool.token != ""
			pool.mu.RUnlock()
			if hasToken && remaining > window {
				continue
			}
			ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
			_, err := pool.Refresh(ctx2)
			cancel()
			if err != nil {
				slog.Warn("token refresh failed", slog.String("credential", pool.Active()), slog.Any("err", err))
				continue
			}
			slog.Info("token refreshed", slog.String("credential", pool.Active()))
		}
	}()
}
