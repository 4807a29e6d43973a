package store

import (
	"context"
)

// KVStore is the durable string key-value substrate behind the cache tier.
// Implementations return (value, false, nil) for absent keys.
type KVStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, val string) error
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Store composes the sub-interfaces for full store access.
// Consumers should depend on the specific sub-interface.
type Store interface {
	KVStore
	StateStore

	// Close closes the store connection.
	Close() error
}
