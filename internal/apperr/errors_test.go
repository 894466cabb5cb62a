package apperr_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/SignpostApp/landing/internal/apperr"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestSafeMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		err    error
		msg    string
		status int
	}{
		{"invalid email", apperr.ErrInvalidEmail, "Invalid email address", http.StatusBadRequest},
		{"disposable", errors.WithMessage(apperr.ErrDisposableDomain, "validate"), "Please use a non-disposable email address", http.StatusBadRequest},
		{"rate limited", apperr.RateLimited(time.Second), "Too many sign-ups right now", http.StatusTooManyRequests},
		{"expired", apperr.ErrExpiredRequest, "Request expired. Please try again.", http.StatusBadRequest},
		{"internal", errors.New("dial tcp 10.0.0.5:5432: connection refused"), apperr.GenericMessage, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.msg, apperr.SafeMessage(tt.err))
			require.Equal(t, tt.status, apperr.StatusCode(tt.err))
		})
	}
}

func TestRateLimitErrorCarriesRetryAfter(t *testing.T) {
	t.Parallel()

	err := errors.WithMessage(apperr.RateLimited(42*time.Second), "admit")

	var rlErr *apperr.RateLimitError
	require.True(t, errors.As(err, &rlErr))
	require.Equal(t, 42*time.Second, rlErr.RetryAfter)
	require.True(t, apperr.IsExpected(err))
}

func TestIsSafeMessage(t *testing.T) {
	t.Parallel()

	require.True(t, apperr.IsSafeMessage("Request expired. Please try again."))
	require.False(t, apperr.IsSafeMessage("pq: duplicate key value violates unique constraint"))
	require.False(t, apperr.IsSafeMessage(apperr.GenericMessage))
}
