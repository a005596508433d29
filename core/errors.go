package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors used across the package
var (
	// Project errors
	ErrProjectDirNotFound   = errors.New("project directory not found")
	ErrComposeBinaryMissing = errors.New("no compose binary found in PATH")
	ErrComposeFileNotFound  = errors.New("compose file not found")
	ErrServiceNotDefined    = errors.New("service not defined in compose file")
	ErrEmptyService         = errors.New("service cannot be empty")

	// Runner errors
	ErrRunnerAlreadyUsed = errors.New("runner already executed")
	ErrMaxTimeRunning    = errors.New("max runtime exceeded")
	ErrTeardownFailed    = errors.New("compose down failed")

	// Probe errors
	ErrDaemonUnreachable = errors.New("docker daemon unreachable")
)

// WrapStepError wraps a step-related error with context
func WrapStepError(op string, stepName string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s step %q: %w", op, stepName, err)
}

// IsRetryableError checks if an error should trigger a retry of the run step
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Non-zero container exits are test failures, never retried implicitly
	if IsNonZeroExitError(err) {
		return false
	}

	return containsNetworkError(err)
}

// containsNetworkError checks if the error is network-related
func containsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	networkErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"no such host",
		"network unreachable",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// NonZeroExitError represents a container exit with non-zero code
type NonZeroExitError struct {
	ExitCode int
}

func (e NonZeroExitError) Error() string {
	return fmt.Sprintf("non-zero exit code: %d", e.ExitCode)
}

// IsNonZeroExitError checks if the error is a non-zero exit code error
func IsNonZeroExitError(err error) bool {
	_, ok := errors.AsType[NonZeroExitError](err)
	return ok
}

// ExitStatus extracts the container exit code carried by err, or 1 for any
// other non-nil error and 0 for nil.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	if e, ok := errors.AsType[NonZeroExitError](err); ok {
		return e.ExitCode
	}
	return 1
}
