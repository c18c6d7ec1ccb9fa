// Package memory is the in-process key-value backend, used by default and
// as the fake in tests.
package memory

import (
	"context"

	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/dental-api/pkg/kvstore"
)

type Store struct {
	cache *cache.Cache
}

var _ kvstore.Store = (*Store)(nil)

// New returns an empty store. Entries never expire.
func New() *Store {
	return &Store{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.cache.Get(key)
	if !ok {
		return nil, kvstore.ErrNotFound
	}
	return clone(v.([]byte)), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.cache.Set(key, clone(value), cache.NoExpiration)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.cache.Delete(key)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error {
	s.cache.Flush()
	return nil
}

// Keys lists the keys currently held.
func (s *Store) Keys() []string {
	items := s.cache.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
