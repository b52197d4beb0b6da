package httpx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(statusErr(http.StatusTooManyRequests)))
	assert.True(t, IsRetryableError(statusErr(http.StatusBadGateway)))
	assert.False(t, IsRetryableError(statusErr(http.StatusBadRequest)))
	assert.True(t, IsRetryableError(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsRetryableError(context.Canceled))
	assert.False(t, IsRetryableError(errors.New("plain")))
}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 3, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(http.StatusServiceUnavailable)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryDoesNotRepeatPermanentFailure(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, time.Millisecond, func(context.Context) error {
		calls++
		return statusErr(http.StatusUnauthorized)
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryAfterDurationCapsHeader(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"30"}}}
	assert.Equal(t, 10*time.Second, RetryAfterDuration(resp, time.Second, 10*time.Second))
	assert.Equal(t, time.Second, RetryAfterDuration(nil, time.Second, 10*time.Second))
}
