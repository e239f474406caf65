package helpers

import (
	"fmt"
	"time"

	"trade-dashboard/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type DashboardError struct {
	Message string
	Cause   error
}

func (e *DashboardError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DashboardError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks. Fetch and parse failures are
// recovered locally by substituting nil for the snapshot; channel failures are
// recovered by polling and a backoff reconnect.
type ConfigurationError struct{ DashboardError }
type FetchError struct {
	DashboardError
	StatusCode int
}
type ParseError struct{ DashboardError }
type ChannelError struct{ DashboardError }
type DatabaseError struct{ DashboardError }

func NewFetchError(url string, status int, cause error) *FetchError {
	msg := fmt.Sprintf("fetch %s failed", url)
	if status != 0 {
		msg = fmt.Sprintf("fetch %s failed with status %d", url, status)
	}
	return &FetchError{DashboardError: DashboardError{Message: msg, Cause: cause}, StatusCode: status}
}

func NewParseError(what string, cause error) *ParseError {
	return &ParseError{DashboardError{Message: fmt.Sprintf("parse %s failed", what), Cause: cause}}
}

func NewChannelError(url string, cause error) *ChannelError {
	return &ChannelError{DashboardError{Message: fmt.Sprintf("push channel %s", url), Cause: cause}}
}

func NewDatabaseError(backend string, cause error) *DatabaseError {
	return &DatabaseError{DashboardError{Message: fmt.Sprintf("%s database", backend), Cause: cause}}
}

func NewConfigurationError(what string, cause error) *ConfigurationError {
	return &ConfigurationError{DashboardError{Message: what, Cause: cause}}
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to attempts times, doubling baseDelay between
// tries. sleep is injectable so callers can honour cancellation.
func RetryWithBackoff[T any](
	log *logger.Logger,
	operation string,
	attempts int,
	baseDelay time.Duration,
	sleep func(time.Duration) bool,
	fn func() (T, error),
) (T, error) {
	var zero T
	var lastErr error
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == attempts-1 {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Debug("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, attempts, operation, err, delay)
		}
		if sleep != nil && !sleep(delay) {
			break
		}
	}

	return zero, lastErr
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler counts consecutive failures per operation so a flapping
// endpoint is logged once at warning level instead of on every cycle.
type ErrorHandler struct {
	Logger   *logger.Logger
	failures map[string]int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	return &ErrorHandler{
		Logger:   log,
		failures: make(map[string]int),
	}
}

// -----------------------------------------------------------------------------

// Handle records err for operation. The first failure in a streak is logged
// as a warning, the rest at debug. A nil err ends the streak.
func (e *ErrorHandler) Handle(operation string, err error) {
	if err == nil {
		if n := e.failures[operation]; n > 0 {
			e.Logger.Info("%s recovered after %d failures", operation, n)
			delete(e.failures, operation)
		}
		return
	}

	e.failures[operation]++
	if e.failures[operation] == 1 {
		e.Logger.Warning("%s failed: %v", operation, err)
		return
	}
	e.Logger.Debug("%s failed (%d in a row): %v", operation, e.failures[operation], err)
}

// Failures returns the current failure streak for operation.
func (e *ErrorHandler) Failures(operation string) int {
	return e.failures[operation]
}
