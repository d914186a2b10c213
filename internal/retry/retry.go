package retry

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// Config controls how many times an operation is attempted. Attempts is the
// total number of tries, so 1 means no retry at all.
type Config struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultConfig performs a single attempt; scheduled runs pick up transient
// failures naturally on the next run.
func DefaultConfig() Config {
	return Config{
		Attempts:  1,
		BaseDelay: 1 * time.Second,
	}
}

// Do executes operation up to cfg.Attempts times with exponential backoff and
// jitter between tries. Non-retryable errors stop immediately.
func Do(ctx context.Context, cfg Config, operation func(context.Context) error) error {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 1 * time.Second
	}

	var err error
	for attempt := 0; attempt < cfg.Attempts; attempt++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}
		if attempt == cfg.Attempts-1 {
			break
		}

		delay := cfg.BaseDelay*time.Duration(1<<attempt) + time.Duration(rand.Int63n(int64(cfg.BaseDelay)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	if cfg.Attempts > 1 {
		return fmt.Errorf("retry: failed after %d attempts: %w", cfg.Attempts, err)
	}
	return err
}

// isRetryable treats network-level failures, server errors and rate limiting
// as transient. Other client errors are not worth repeating.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	if strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "temporary failure") {
		return true
	}

	if strings.Contains(msg, "status 5") || strings.Contains(msg, "status 429") {
		return true
	}
	if strings.Contains(msg, "status 4") {
		return false
	}

	return true
}

// HTTPStatusRetryable reports whether an HTTP status code is worth retrying.
func HTTPStatusRetryable(statusCode int) bool {
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}
