package repository

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPStoreAndConsume(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewOTPRepo(rdb)
	ctx := context.Background()

	mock.ExpectSet("otp:alice@example.com", "123456", 10*time.Minute).SetVal("OK")
	require.NoError(t, repo.Store(ctx, " Alice@Example.COM ", "123456", 10*time.Minute))

	mock.ExpectGet("otp:alice@example.com").SetVal("123456")
	mock.ExpectDel("otp:alice@example.com").SetVal(1)
	ok, err := repo.Consume(ctx, "alice@example.com", "123456")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPConsumeWrongCode(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewOTPRepo(rdb)

	// A mismatch leaves the stored code in place for another attempt
	// within the TTL.
	mock.ExpectGet("otp:alice@example.com").SetVal("123456")
	ok, err := repo.Consume(context.Background(), "alice@example.com", "654321")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOTPConsumeMissing(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	repo := NewOTPRepo(rdb)

	mock.ExpectGet("otp:alice@example.com").RedisNil()
	ok, err := repo.Consume(context.Background(), "alice@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPUnavailableWithoutRedis(t *testing.T) {
	repo := NewOTPRepo(nil)
	err := repo.Store(context.Background(), "a@b.c", "1", time.Minute)
	assert.ErrorIs(t, err, ErrOTPUnavailable)
	_, err = repo.Consume(context.Background(), "a@b.c", "1")
	assert.ErrorIs(t, err, ErrOTPUnavailable)
}
