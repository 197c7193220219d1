package idempotency

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-ledger/internal/config"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "attendance:idempotency:"

// RedisStore remembers which event an Idempotency-Key produced.
// It implements attendance.IdempotencyStore.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// OpenRedis connects and pings the server
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	slog.Info("redis connected", "addr", cfg.Addr)

	return NewRedisStore(rdb, cfg.IdempotencyTTL), nil
}

func NewRedisStore(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Lookup(ctx context.Context, key string) (string, bool, error) {
	eventID, err := s.rdb.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return eventID, true, nil
}

// Remember stores the mapping unless the key is already taken
func (s *RedisStore) Remember(ctx context.Context, key, eventID string) error {
	return s.rdb.SetNX(ctx, keyPrefix+key, eventID, s.ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
