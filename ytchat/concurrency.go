package ytchat

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"
)

// postSemaphore bounds concurrent outbound posts across the ingestion loop and
// all background workers (reminders, pomodoro, announcer). It is initialized
// once based on MAX_CONCURRENT_POSTS env var (default: 1 for serial sends).
var (
	postSemaphore     chan struct{}
	postSemaphoreOnce sync.Once
)

func initPostSemaphore() {
	postSemaphoreOnce.Do(func() {
		maxConcurrent := 1 // default: serial sends
		if s := os.Getenv("MAX_CONCURRENT_POSTS"); s != "" {
			if n, err := strconv.Atoi(s); err == nil && n > 0 {
				maxConcurrent = n
			}
		}
		postSemaphore = make(chan struct{}, maxConcurrent)
		slog.Info("post concurrency limit initialized", slog.Int("max_concurrent", maxConcurrent))
	})
}

// acquirePostSlot blocks until a post slot is available or context is canceled.
// Returns true if slot acquired, false if context canceled.
func acquirePostSlot(ctx context.Context) bool {
	initPostSemaphore()
	select {
	case postSemaphore <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// releasePostSlot releases a post slot, allowing another send to proceed.
func releasePostSlot() {
	initPostSemaphore()
	select {
	case <-postSemaphore:
	default:
		// Should not happen unless mismatched acquire/release
		slog.Warn("post slot release called without corresponding acquire")
	}
}
