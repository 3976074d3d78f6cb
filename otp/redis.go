package otp

import (
	"context"
	"crypto/subtle"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "eduauth:otp:"

// RedisStore keeps issued codes in Redis so multiple instances share
// the same code space. GetDel makes the consume-on-verify atomic.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		ttl:    DefaultTTL,
	}
}

// WithTTL overrides the code lifetime.
func (s *RedisStore) WithTTL(ttl time.Duration) *RedisStore {
	if ttl > 0 {
		s.ttl = ttl
	}
	return s
}

func (s *RedisStore) Issue(ctx context.Context, mobile string) (string, error) {
	if s.client == nil {
		return "", ErrStoreUnavailable
	}

	code, err := randomCode()
	if err != nil {
		return "", err
	}

	if err := s.client.Set(ctx, redisKeyPrefix+mobile, code, s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to store otp code")
	}

	return code, nil
}

func (s *RedisStore) Verify(ctx context.Context, mobile, code string) (bool, error) {
	if s.client == nil {
		return false, ErrStoreUnavailable
	}

	stored, err := s.client.GetDel(ctx, redisKeyPrefix+mobile).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to read otp code")
	}

	match := subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1
	return match, nil
}

var _ Store = (*RedisStore)(nil)
