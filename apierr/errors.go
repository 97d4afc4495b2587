// Package apierr defines the single error shape returned by the storefront
// data-access layer. Callers branch on Kind (or errors.Is against the
// sentinels) regardless of whether a failure came from input validation, the
// rate limiter, the timeout guard, the network, or an HTTP status.
package apierr

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// Kind tags an Error with its failure origin.
type Kind int

const (
	// KindAPI covers HTTP-level failures and normalized transport failures.
	KindAPI Kind = iota
	// KindInvalidArgument is bad caller input, detected before any I/O.
	KindInvalidArgument
	// KindRateLimitExceeded is returned when the request window is full.
	KindRateLimitExceeded
	// KindRequestTimeout is returned when a call outlives its deadline.
	KindRequestTimeout
)

func (k Kind) String() string {
	switch k {
	case KindAPI:
		return "api_error"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindRateLimitExceeded:
		return "rate_limit_exceeded"
	case KindRequestTimeout:
		return "request_timeout"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Status: http.StatusBadRequest}
	ErrRateLimited     = &Error{Kind: KindRateLimitExceeded, Status: http.StatusTooManyRequests}
	ErrRequestTimeout  = &Error{Kind: KindRequestTimeout, Status: http.StatusRequestTimeout}
	ErrAPI             = &Error{Kind: KindAPI}
)

// Error is the tagged failure variant. Body holds the best-effort decoded
// JSON payload of a failed HTTP response and is nil when it could not be parsed.
type Error struct {
	Kind     Kind
	Status   int
	Message  string
	Body     any
	Endpoint string
	Cause    error
}

// Error implements error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	out := fmt.Sprintf("%s: %s", e.Kind, msg)
	if e.Status > 0 {
		out = fmt.Sprintf("%s (status %d)", out, e.Status)
	}
	if e.Endpoint != "" {
		out = fmt.Sprintf("%s [%s]", out, e.Endpoint)
	}
	if e.Cause != nil {
		out = fmt.Sprintf("%s: %v", out, e.Cause)
	}
	return out
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares kinds for errors.Is.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// InvalidArgument reports bad caller input.
func InvalidArgument(format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Status:  http.StatusBadRequest,
		Message: fmt.Sprintf(format, args...),
	}
}

// RateLimited reports a rejected request because the window is full.
func RateLimited(limit int) *Error {
	return &Error{
		Kind:    KindRateLimitExceeded,
		Status:  http.StatusTooManyRequests,
		Message: fmt.Sprintf("rate limit exceeded (%d requests per window)", limit),
	}
}

// Timeout reports a call that did not finish before its deadline.
func Timeout(endpoint string, cause error) *Error {
	return &Error{
		Kind:     KindRequestTimeout,
		Status:   http.StatusRequestTimeout,
		Message:  "request timeout",
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// API reports a non-success HTTP status.
func API(endpoint string, status int, body any) *Error {
	return &Error{
		Kind:     KindAPI,
		Status:   status,
		Message:  fmt.Sprintf("API error: %d - %s", status, http.StatusText(status)),
		Body:     body,
		Endpoint: endpoint,
	}
}

// Transport normalizes a network-level failure into a 500 API error.
func Transport(endpoint string, cause error) *Error {
	return &Error{
		Kind:     KindAPI,
		Status:   http.StatusInternalServerError,
		Message:  "an error occurred while fetching data",
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// Canceled normalizes an explicit cancellation into a 408 API error.
func Canceled(endpoint string, cause error) *Error {
	return &Error{
		Kind:     KindAPI,
		Status:   http.StatusRequestTimeout,
		Message:  "request canceled",
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// As returns err as *Error when it is one (or wraps one).
func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindAPI with ok=false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.Kind, true
	}
	return KindAPI, false
}

// StatusOf returns the HTTP-equivalent status of err, or 0 when unknown.
func StatusOf(err error) int {
	if e, ok := As(err); ok {
		return e.Status
	}
	return 0
}
