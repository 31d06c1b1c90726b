package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorUnwrapsSentinel(t *testing.T) {
	err := New(fmt.Errorf("tenant t1: %w", ErrRateLimited), http.StatusTooManyRequests, RateLimitedMessage)

	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.False(t, errors.Is(err, ErrGuardrailViolation))

	var appErr *AppError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &appErr))
	assert.Equal(t, http.StatusTooManyRequests, appErr.Status)
}

func TestStatusOf(t *testing.T) {
	status, msg := StatusOf(New(ErrInvalidConfig, http.StatusBadRequest, "bad ceiling"))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "bad ceiling", msg)

	status, msg = StatusOf(errors.New("nil pointer somewhere"))
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, SystemErrorMessage, msg)
}

func TestWrapRedis(t *testing.T) {
	assert.Nil(t, WrapRedis(nil))

	status, _ := StatusOf(WrapRedis(redis.Nil))
	assert.Equal(t, http.StatusNotFound, status)

	status, msg := StatusOf(WrapRedis(errors.New("connection refused")))
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, RedisErrorMessage, msg)
}
