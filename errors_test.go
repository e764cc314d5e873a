package wanikache

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientErrorMessageComposition(t *testing.T) {
	err := &ClientError{Type: ErrorTypeServer, Message: "upstream unavailable"}
	assert.Equal(t, "Server: upstream unavailable", err.Error())

	err = &ClientError{Type: ErrorTypeRateLimit, Message: "rate limited", StatusCode: 429, Attempt: 3, MaxRetries: 4}
	assert.Equal(t, "RateLimit: rate limited (status 429) (attempt 3/4)", err.Error())

	cause := errors.New("connection refused")
	err = &ClientError{Type: ErrorTypeNetwork, Message: "request failed", Cause: cause}
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClientErrorUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := &ClientError{Type: ErrorTypeNetwork, Message: "request failed", Cause: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestClientErrorIsMatchesByType(t *testing.T) {
	err := fmt.Errorf("fetching user: %w", &ClientError{Type: ErrorTypeAuth, Message: "bad token", StatusCode: 401})

	assert.ErrorIs(t, err, &ClientError{Type: ErrorTypeAuth})
	assert.NotErrorIs(t, err, &ClientError{Type: ErrorTypeServer})

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, 401, clientErr.StatusCode)
}

func TestErrorClassifiers(t *testing.T) {
	auth := &ClientError{Type: ErrorTypeAuth, StatusCode: 401}
	forbidden := &ClientError{Type: ErrorTypeForbidden, StatusCode: 403}
	rateLimit := &ClientError{Type: ErrorTypeRateLimit, StatusCode: 429}

	assert.True(t, IsAuthError(auth))
	assert.False(t, IsAuthError(forbidden))

	assert.True(t, IsForbiddenError(forbidden))
	assert.False(t, IsForbiddenError(auth))

	assert.True(t, IsRateLimitError(rateLimit))
	assert.False(t, IsRateLimitError(errors.New("plain")))

	// Classifiers see through wrapping.
	assert.True(t, IsAuthError(fmt.Errorf("outer: %w", auth)))
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", &ClientError{Type: ErrorTypeNetwork}, true},
		{"server", &ClientError{Type: ErrorTypeServer, StatusCode: 502}, true},
		{"rate limit", &ClientError{Type: ErrorTypeRateLimit, StatusCode: 429}, true},
		{"auth", &ClientError{Type: ErrorTypeAuth, StatusCode: 401}, false},
		{"forbidden", &ClientError{Type: ErrorTypeForbidden, StatusCode: 403}, false},
		{"validation", &ClientError{Type: ErrorTypeValidation}, false},
		{"api 4xx", &ClientError{Type: ErrorTypeAPI, StatusCode: 422}, false},
		{"api 5xx", &ClientError{Type: ErrorTypeAPI, StatusCode: 503}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTransient(tc.err))
		})
	}
}
