// Package badger backs the key-value store with an embedded BadgerDB, so a
// single-node deployment keeps its collections and session across restarts
// without an external service.
package badger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/pkg/kvstore"
)

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string `mapstructure:"path"`
	// InMemory keeps everything in RAM. Useful for testing.
	InMemory   bool `mapstructure:"in_memory"`
	SyncWrites bool `mapstructure:"sync_writes"`
	// GCInterval is how often value log GC runs. Zero disables it.
	GCInterval     time.Duration `mapstructure:"gc_interval"`
	GCDiscardRatio float64       `mapstructure:"gc_discard_ratio"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Path:           "./data/badger",
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig returns configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

type zerologAdapter struct {
	logger zerolog.Logger
}

func (l zerologAdapter) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l zerologAdapter) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l zerologAdapter) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l zerologAdapter) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}

type Store struct {
	db     *badger.DB
	logger zerolog.Logger
	stop   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ kvstore.Store = (*Store)(nil)

// Open opens (creating if needed) the database described by cfg.
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(zerologAdapter{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	s := &Store{db: db, logger: logger, stop: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		ratio := cfg.GCDiscardRatio
		if ratio <= 0 || ratio >= 1 {
			ratio = 0.5
		}
		s.wg.Add(1)
		go s.runGC(cfg.GCInterval, ratio)
	}
	return s, nil
}

func (s *Store) runGC(interval time.Duration, ratio float64) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			for {
				// RunValueLogGC returns an error once nothing is left to rewrite.
				if err := s.db.RunValueLogGC(ratio); err != nil {
					break
				}
			}
		}
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, kvstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger get %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("badger set %s: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("badger delete %s: %w", key, err)
	}
	return nil
}

func (s *Store) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}

func (s *Store) Close() error {
	var err error
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}
