package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_AllowsUnderLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(client, 10, time.Minute)

	mock.ExpectIncr("ratelimit:join:1.2.3.4").SetVal(1)
	mock.ExpectExpire("ratelimit:join:1.2.3.4", time.Minute).SetVal(true)

	assert.True(t, limiter.Allow(context.Background(), "1.2.3.4"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(client, 10, time.Minute)

	mock.ExpectIncr("ratelimit:join:1.2.3.4").SetVal(11)

	assert.False(t, limiter.Allow(context.Background(), "1.2.3.4"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRateLimiter_FailsOpenOnRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := NewRateLimiter(client, 10, time.Minute)

	mock.ExpectIncr("ratelimit:join:1.2.3.4").SetErr(errors.New("connection refused"))

	assert.True(t, limiter.Allow(context.Background(), "1.2.3.4"))
}
