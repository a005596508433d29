package core

import (
	"fmt"
	"math"
	"time"
)

// RetryConfig contains retry configuration for the run step
type RetryConfig struct {
	MaxRetries       int
	RetryDelayMs     int
	RetryExponential bool
	RetryMaxDelayMs  int
}

// RetryExecutor wraps step execution with retry logic
type RetryExecutor struct {
	logger Logger
}

// NewRetryExecutor creates a new retry executor
func NewRetryExecutor(logger Logger) *RetryExecutor {
	return &RetryExecutor{logger: logger}
}

// ExecuteWithRetry executes the given function with retry logic. With
// MaxRetries <= 0 the function runs exactly once.
func (re *RetryExecutor) ExecuteWithRetry(name string, config RetryConfig, runFunc func() error) error {
	if config.MaxRetries <= 0 {
		return runFunc()
	}

	var lastErr error
	attempt := 0

	for attempt <= config.MaxRetries {
		err := runFunc()

		if err == nil {
			if attempt > 0 {
				re.logger.Noticef("Step %s succeeded after %d retries", name, attempt)
			}
			return nil
		}

		lastErr = err

		// Container exits and other deterministic failures are not retried;
		// only transient (network-looking) failures are.
		if !IsRetryableError(err) {
			return err
		}

		if attempt >= config.MaxRetries {
			break
		}

		delay := re.calculateDelay(config, attempt)

		re.logger.Warningf("Step %s failed (attempt %d/%d): %v. Retrying in %v",
			name, attempt+1, config.MaxRetries+1, err, delay)

		time.Sleep(delay)

		attempt++
	}

	re.logger.Errorf("Step %s failed after %d retries: %v",
		name, config.MaxRetries+1, lastErr)

	return fmt.Errorf("step failed after %d attempts: %w", config.MaxRetries+1, lastErr)
}

// calculateDelay calculates the retry delay based on configuration
func (re *RetryExecutor) calculateDelay(config RetryConfig, attempt int) time.Duration {
	delayMs := config.RetryDelayMs

	if config.RetryExponential {
		delayMs = int(float64(config.RetryDelayMs) * math.Pow(2, float64(attempt)))

		if delayMs > config.RetryMaxDelayMs {
			delayMs = config.RetryMaxDelayMs
		}
	}

	return time.Duration(delayMs) * time.Millisecond
}
