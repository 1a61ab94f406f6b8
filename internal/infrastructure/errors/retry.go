package errors

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"launchbox/internal/infrastructure/logging"
)

// RetryConfig controls WithRetry.
type RetryConfig struct {
	MaxAttempts     int
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	Jitter          bool        // add up to 25% random delay
	RetryableErrors []ErrorCode // codes worth another attempt
	Logger          logging.Logger
}

// DefaultRetryConfig retries a locked or briefly unavailable database three
// times.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  50 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
		Jitter:        true,
		RetryableErrors: []ErrorCode{
			ErrCodeBusy,
			ErrCodeConnection,
			ErrCodeTimeout,
		},
	}
}

// WithRetry runs operation until it succeeds, fails with an error that is
// not retryable, runs out of attempts, or ctx ends.
func WithRetry(ctx context.Context, config *RetryConfig, operationName string, operation func() error) error {
	if config == nil {
		config = DefaultRetryConfig()
	}
	attempts := max(config.MaxAttempts, 1)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := operation()
		if err == nil {
			if attempt > 0 && config.Logger != nil {
				config.Logger.Debug("Store operation succeeded after retry",
					"operation", operationName, "attempts", attempt+1)
			}
			return nil
		}
		lastErr = err

		if !shouldRetry(err, config) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := calculateDelay(attempt, config)
		if config.Logger != nil {
			config.Logger.Warn("Store operation failed, retrying",
				"operation", operationName,
				"attempt", attempt+1,
				"max_attempts", attempts,
				"delay", delay,
				"error_code", ClassifyError(err).String())
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("operation '%s' cancelled during retry: %w", operationName, ctx.Err())
		case <-timer.C:
		}
	}

	return fmt.Errorf("operation '%s' failed after %d attempts: %w", operationName, attempts, lastErr)
}

func shouldRetry(err error, config *RetryConfig) bool {
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || !storeErr.IsRetryable() {
		return false
	}
	return slices.Contains(config.RetryableErrors, storeErr.Code)
}

func calculateDelay(attempt int, config *RetryConfig) time.Duration {
	multiplier := 1.0
	for range attempt {
		multiplier *= config.BackoffFactor
	}
	delay := time.Duration(float64(config.InitialDelay) * multiplier)

	if config.Jitter && delay > 0 {
		if jitter := int64(float64(delay) * 0.25); jitter > 0 {
			delay += time.Duration(rand.Int64N(jitter))
		}
	}
	return min(delay, config.MaxDelay)
}
