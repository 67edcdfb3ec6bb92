package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "cart:"
	maxTxAttempts = 5
)

var ErrConflict = errors.New("cart changed concurrently")

// RedisStore keeps each session's cart as a JSON document under cart:<session>.
// Carts expire after ttl without writes; zero ttl keeps them forever.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Snapshot(ctx context.Context, sessionID string) (Cart, error) {
	return s.load(ctx, s.rdb, sessionID)
}

func (s *RedisStore) Update(ctx context.Context, sessionID string, fn func(c *Cart) error) error {
	key := keyPrefix + sessionID

	txf := func(tx *redis.Tx) error {
		c, err := s.load(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(&c); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if c.IsEmpty() {
				pipe.Del(ctx, key)
				return nil
			}
			raw, err := json.Marshal(c)
			if err != nil {
				return err
			}
			pipe.Set(ctx, key, raw, s.ttl)
			return nil
		})
		return err
	}

	for range maxTxAttempts {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return fmt.Errorf("update cart for session %s: %w", sessionID, ErrConflict)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, cmd getter, sessionID string) (Cart, error) {
	raw, err := cmd.Get(ctx, keyPrefix+sessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return Cart{}, fmt.Errorf("get cart for session %s: %w", sessionID, err)
	}

	var c Cart
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cart{}, fmt.Errorf("decode cart for session %s: %w", sessionID, err)
	}
	return c, nil
}
