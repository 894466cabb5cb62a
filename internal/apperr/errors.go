// Package apperr holds the error kinds the waitlist surfaces to callers and the
// allow-list of messages that are safe to show to end users.
package apperr

import (
	"net/http"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrInvalidEmail     = errors.New("invalid email")
	ErrDisposableDomain = errors.New("disposable email domain")
	ErrRateLimited      = errors.New("rate limited")
	ErrExpiredRequest   = errors.New("expired request")
)

const (
	InvalidEmailMessage     = "Invalid email address"
	DisposableDomainMessage = "Please use a non-disposable email address"
	RateLimitedMessage      = "Too many sign-ups right now"
	ExpiredRequestMessage   = "Request expired. Please try again."

	// GenericMessage replaces anything that is not on the allow-list.
	GenericMessage = "Something went wrong. Try again."
)

type kind struct {
	err     error
	message string
	status  int
}

var kinds = []kind{
	{ErrInvalidEmail, InvalidEmailMessage, http.StatusBadRequest},
	{ErrDisposableDomain, DisposableDomainMessage, http.StatusBadRequest},
	{ErrRateLimited, RateLimitedMessage, http.StatusTooManyRequests},
	{ErrExpiredRequest, ExpiredRequestMessage, http.StatusBadRequest},
}

// RateLimitError carries the suggested wait before the next attempt.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return ErrRateLimited.Error()
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

func RateLimited(retryAfter time.Duration) error {
	return &RateLimitError{RetryAfter: retryAfter}
}

// IsExpected reports whether err is one of the user-facing kinds.
func IsExpected(err error) bool {
	_, ok := lookup(err)
	return ok
}

// SafeMessage maps err to a pre-approved message. Unknown errors never leak
// their text and collapse to GenericMessage.
func SafeMessage(err error) string {
	if k, ok := lookup(err); ok {
		return k.message
	}
	return GenericMessage
}

func StatusCode(err error) int {
	if k, ok := lookup(err); ok {
		return k.status
	}
	return http.StatusInternalServerError
}

// IsSafeMessage reports whether msg may be shown to a user verbatim.
func IsSafeMessage(msg string) bool {
	for _, k := range kinds {
		if k.message == msg {
			return true
		}
	}
	return false
}

func lookup(err error) (kind, bool) {
	if err == nil {
		return kind{}, false
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k, true
		}
	}
	return kind{}, false
}
