package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a RedisStore backed by an in-process redis server.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStoreWithClient(client, "tripreel:")
	t.Cleanup(func() { s.Close() })
	return mr, s
}

// Every backend honours the same contract.
func TestStoreContract(t *testing.T) {
	backends := map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store { return setupTestStore(t) },
		"redis": func(t *testing.T) Store {
			_, s := setupMiniRedis(t)
			return s
		},
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
	}

	for name, mk := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := mk(t)

			_, ok, err := s.Get(ctx, "places:day-1:41.9,12.5")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "places:day-1:41.9,12.5", `{"value":[],"expiresAt":42}`))
			v, ok, err := s.Get(ctx, "places:day-1:41.9,12.5")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, `{"value":[],"expiresAt":42}`, v)

			require.NoError(t, s.SetState(ctx, "bgm_enabled", "false"))
			st, ok := s.GetState(ctx, "bgm_enabled")
			assert.True(t, ok)
			assert.Equal(t, "false", st)
			require.NoError(t, s.DeleteState(ctx, "bgm_enabled"))
			_, ok = s.GetState(ctx, "bgm_enabled")
			assert.False(t, ok)
		})
	}
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, s := setupMiniRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "spot-location:d2-colosseum", "x"))
	assert.True(t, mr.Exists("tripreel:cache:spot-location:d2-colosseum"))
	assert.Equal(t, time.Duration(0), mr.TTL("tripreel:cache:spot-location:d2-colosseum"))
}

func TestRedisStore_ServerDown(t *testing.T) {
	mr, s := setupMiniRedis(t)
	mr.Close()

	_, _, err := s.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, s.Set(context.Background(), "k", "v"))
}

func TestNewRedisStore(t *testing.T) {
	_, err := NewRedisStore(context.Background(), RedisOptions{})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	s, err := NewRedisStore(context.Background(), RedisOptions{Addr: mr.Addr(), Prefix: "t:"})
	require.NoError(t, err)
	defer s.Close()
	assert.NoError(t, s.Ping(context.Background()))
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Set(context.Background(), "a", "b"))
	assert.Equal(t, 1, s.Len())
	require.NoError(t, s.Close())

	_, _, err := s.Get(context.Background(), "a")
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(s.Set(context.Background(), "a", "c"), ErrClosed))
}
