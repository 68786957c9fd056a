package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

// RedisCodeStore keeps one time login codes in Redis, letting the TTL do the
// expiry work and GETDEL enforce single use.
type RedisCodeStore struct {
	client *redis.Client
	prefix string
}

// NewRedisCodeStore returns a Redis backed CodeStore.
func NewRedisCodeStore(client *redis.Client) *RedisCodeStore {
	return &RedisCodeStore{
		client: client,
		prefix: "auth:code:",
	}
}

func (r *RedisCodeStore) key(phoneNumber string) string {
	return r.prefix + phoneNumber
}

// Save implements CodeStore. Last issued code wins.
func (r *RedisCodeStore) Save(ctx context.Context, phoneNumber, code string, ttl time.Duration) error {
	if ttl <= 0 {
		return goerrors.New("code ttl must be positive", goerrors.CategoryBadInput)
	}
	if err := r.client.Set(ctx, r.key(phoneNumber), code, ttl).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store login code")
	}
	return nil
}

// Consume implements CodeStore: the code is removed atomically as it is read.
func (r *RedisCodeStore) Consume(ctx context.Context, phoneNumber string) (string, bool, error) {
	code, err := r.client.GetDel(ctx, r.key(phoneNumber)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to consume login code")
	}
	return code, true, nil
}

var _ CodeStore = (*RedisCodeStore)(nil)
