// Package kvstore defines the key-value blob area the dashboard keeps its
// collections and session in. Values are opaque bytes; callers own the
// encoding.
package kvstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key is absent.
var ErrNotFound = errors.New("key not found")

// Store is a persistent key-value blob area.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

// Backend names accepted by configuration.
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)
