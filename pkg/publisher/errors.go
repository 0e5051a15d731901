package publisher

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies adapter failures for the retry policy.
type ErrorKind string

const (
	// KindValidation marks a target configuration rejected before any publish
	// attempt. Never retried.
	KindValidation ErrorKind = "validation"

	// KindTransient marks failures worth retrying: timeouts, 5xx responses,
	// rate-limit signals.
	KindTransient ErrorKind = "transient"

	// KindPermanent marks failures that retrying cannot fix, like rejected
	// payloads or revoked credentials.
	KindPermanent ErrorKind = "permanent"
)

// Error is a classified adapter failure.
type Error struct {
	Kind     ErrorKind
	Platform string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s publish error (%s): %v", e.Platform, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewValidationError marks a config rejection.
func NewValidationError(platform string, err error) *Error {
	return &Error{Kind: KindValidation, Platform: platform, Err: err}
}

// NewTransientError marks a retryable failure.
func NewTransientError(platform string, err error) *Error {
	return &Error{Kind: KindTransient, Platform: platform, Err: err}
}

// NewPermanentError marks a non-retryable failure.
func NewPermanentError(platform string, err error) *Error {
	return &Error{Kind: KindPermanent, Platform: platform, Err: err}
}

// FromStatusCode classifies an HTTP response status from a platform API.
// 429 and every 5xx are transient; any other non-2xx is permanent.
func FromStatusCode(platform string, status int, body string) *Error {
	err := fmt.Errorf("unexpected status %d: %s", status, body)

	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return NewTransientError(platform, err)
	}

	return NewPermanentError(platform, err)
}

// KindOf extracts the classification of an adapter error. Unclassified errors
// (context deadline, transport failures) count as transient so the policy
// gives them another chance.
func KindOf(err error) ErrorKind {
	var pubErr *Error
	if errors.As(err, &pubErr) {
		return pubErr.Kind
	}

	return KindTransient
}

// IsRetryable reports whether the retry policy may schedule another attempt.
func IsRetryable(err error) bool {
	return KindOf(err) == KindTransient
}
