package wanikache

import (
	"errors"
	"fmt"
	"time"
)

// Error type identifiers carried by ClientError.Type.
const (
	ErrorTypeAuth       = "Auth"
	ErrorTypeForbidden  = "Forbidden"
	ErrorTypeRateLimit  = "RateLimit"
	ErrorTypeServer     = "Server"
	ErrorTypeNetwork    = "Network"
	ErrorTypeAPI        = "API"
	ErrorTypeValidation = "Validation"
)

// Sentinel errors for common failure scenarios
var (
	// ErrQuotaExceeded is returned by a Store whose byte quota is exhausted.
	ErrQuotaExceeded = errors.New("wanikache: storage quota exceeded")

	// ErrCacheMiss is returned when a stale lookup finds nothing usable.
	ErrCacheMiss = errors.New("wanikache: cache miss")
)

// ClientError represents a typed failure surfaced by the client.
type ClientError struct {
	Type       string
	Message    string
	StatusCode int
	Endpoint   string
	Attempt    int
	MaxRetries int
	Timestamp  time.Time
	Cause      error
}

// Error implements error interface.
func (e *ClientError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Type, e.Message)
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Attempt > 0 {
		msg = fmt.Sprintf("%s (attempt %d/%d)", msg, e.Attempt, e.MaxRetries)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *ClientError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares error types for errors.Is.
func (e *ClientError) Is(target error) bool {
	if e == nil {
		return false
	}
	if targetErr, ok := target.(*ClientError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// IsAuthError reports whether err is a fatal 401 authentication failure.
func IsAuthError(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrorTypeAuth
}

// IsForbiddenError reports whether err is a 403 subscription/access failure.
func IsForbiddenError(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrorTypeForbidden
}

// IsRateLimitError reports whether err is a 429 failure that survived all retries.
func IsRateLimitError(err error) bool {
	var clientErr *ClientError
	return errors.As(err, &clientErr) && clientErr.Type == ErrorTypeRateLimit
}

// IsTransient determines if an error represents a transient failure that might
// succeed on retry. Returns true for network errors, 5xx server responses and
// rate limiting; false for auth, forbidden and validation errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case ErrorTypeNetwork, ErrorTypeServer, ErrorTypeRateLimit:
			return true
		case ErrorTypeAPI:
			return clientErr.StatusCode == 429 || clientErr.StatusCode >= 500
		default:
			return false
		}
	}

	return false
}
