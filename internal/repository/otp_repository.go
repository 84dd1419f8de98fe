package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPRepo stores password-reset one-time codes in Redis under a TTL
// so pending resets survive process restarts and expire on their
// own. Keys are scoped by normalized email.
type OTPRepo struct {
	rdb *redis.Client
}

// NewOTPRepo returns an OTPRepo backed by the given Redis client.
// The client may be nil when Redis is unavailable; all operations
// then fail with ErrOTPUnavailable and handlers report the reset
// feature as down rather than falling back to process memory.
func NewOTPRepo(rdb *redis.Client) *OTPRepo { return &OTPRepo{rdb: rdb} }

var ErrOTPUnavailable = errors.New("otp store unavailable")

func otpKey(email string) string {
	return "otp:" + strings.ToLower(strings.TrimSpace(email))
}

// Store saves the code for the email with the given TTL, replacing
// any earlier pending code.
func (r *OTPRepo) Store(ctx context.Context, email, code string, ttl time.Duration) error {
	if r.rdb == nil {
		return ErrOTPUnavailable
	}
	return r.rdb.Set(ctx, otpKey(email), code, ttl).Err()
}

// Consume checks the code for the email and deletes it on a match,
// so a code can be used at most once. It returns false for a
// missing, expired or mismatched code.
func (r *OTPRepo) Consume(ctx context.Context, email, code string) (bool, error) {
	if r.rdb == nil {
		return false, ErrOTPUnavailable
	}
	key := otpKey(email)
	stored, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if stored != code {
		return false, nil
	}
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return false, err
	}
	return true, nil
}
