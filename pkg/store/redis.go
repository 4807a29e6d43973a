package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions holds connection settings for RedisStore.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// RedisStore implements Store on a redis server. Cache keys live under
// <prefix>cache:<key>; state lives in the <prefix>state hash.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	slog.Info("Connected to redis durable store", "addr", opts.Addr, "db", opts.DB)
	return NewRedisStoreWithClient(client, opts.Prefix), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) cacheKey(key string) string { return s.prefix + "cache:" + key }
func (s *RedisStore) stateKey() string           { return s.prefix + "state" }

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.cacheKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// Set stores without a redis TTL; expiry is carried inside the value envelope.
func (s *RedisStore) Set(ctx context.Context, key, val string) error {
	err := s.client.Set(ctx, s.cacheKey(key), val, 0).Err()
	if err != nil && isOOM(err) {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

// isOOM reports the server refusing a write under maxmemory.
func isOOM(err error) bool {
	var rerr redis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "OOM")
}

func (s *RedisStore) GetState(ctx context.Context, key string) (string, bool) {
	val, err := s.client.HGet(ctx, s.stateKey(), key).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *RedisStore) SetState(ctx context.Context, key, val string) error {
	return s.client.HSet(ctx, s.stateKey(), key, val).Err()
}

func (s *RedisStore) DeleteState(ctx context.Context, key string) error {
	return s.client.HDel(ctx, s.stateKey(), key).Err()
}

// Ping checks the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
