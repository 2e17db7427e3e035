package lastfm

import (
	"errors"
	"fmt"
)

// Error represents a Last.fm API error.
//
// Last.fm answers logical failures with HTTP 200 and a JSON body of the
// form {"error": 6, "message": "User not found"}. Every response body is
// checked for that field and converted into an *Error, so callers can tell
// "user doesn't exist" apart from a malformed response by Code.
type Error struct {
	Code    int    // Last.fm error code
	Message string // Error message from Last.fm
}

// Error returns the error message.
func (e *Error) Error() string {
	return fmt.Sprintf("lastfm: error %d: %s", e.Code, e.Message)
}

// Is checks if the target error is a Last.fm error.
//
// This allows errors.Is() to work with *Error types.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Temporary returns true if the error is temporary and the request
// should be retried.
//
// The following Last.fm error codes are considered temporary:
//   - 11: Service Offline - temporarily unavailable
//   - 16: Service Temporarily Unavailable
//   - 29: Rate Limit Exceeded
func (e *Error) Temporary() bool {
	switch e.Code {
	case ErrCodeServiceOffline, ErrCodeTempUnavailable, ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}

// NotFound reports whether the error means the requested user or
// resource does not exist.
func (e *Error) NotFound() bool {
	return e.Code == ErrCodeInvalidParameters
}

// Common Last.fm error codes.
const (
	ErrCodeInvalidService       = 2
	ErrCodeInvalidMethod        = 3
	ErrCodeAuthenticationFailed = 4
	ErrCodeInvalidFormat        = 5
	ErrCodeInvalidParameters    = 6
	ErrCodeInvalidResourceSpec  = 7
	ErrCodeOperationFailed      = 8
	ErrCodeInvalidSessionKey    = 9
	ErrCodeInvalidAPIKey        = 10
	ErrCodeServiceOffline       = 11
	ErrCodeSubscribersOnly      = 12
	ErrCodeInvalidSignature     = 13
	ErrCodeUnauthorizedToken    = 14
	ErrCodeExpiredToken         = 15
	ErrCodeTempUnavailable      = 16
	ErrCodeRateLimitExceeded    = 29
)

// FetchError is returned when a request never produced a usable API
// response: the network failed, the server kept answering 5xx, or the body
// was not JSON.
type FetchError struct {
	Method string // Last.fm method, e.g. user.getweeklytrackchart
	Err    error  // Underlying cause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("lastfm: failed to fetch from Last.fm API (%s): %v", e.Method, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Predefined errors for common cases.
var (
	// ErrInvalidConfig is returned when client configuration is invalid.
	ErrInvalidConfig = errors.New("lastfm: invalid configuration")

	// ErrInvalidPeriod is returned when a top chart period is not one of
	// the values Last.fm accepts.
	ErrInvalidPeriod = errors.New("lastfm: invalid period")

	// ErrEmptyUsername is returned when a user method is called without a user.
	ErrEmptyUsername = errors.New("lastfm: username cannot be empty")
)

// isRetryableError determines if an error should trigger a retry.
//
// Only Last.fm API errors are classified here. The transport layer
// handles network error retry separately.
func isRetryableError(err error) bool {
	var lastfmErr *Error
	if errors.As(err, &lastfmErr) {
		return lastfmErr.Temporary()
	}
	return false
}
