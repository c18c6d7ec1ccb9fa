// Package store reads and writes whole named collections as JSON blobs in a
// key-value backend.
package store

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/pkg/errors"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/messaging"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

const KeyPrefix = "dental_"

const (
	CollectionPatients     = "patients"
	CollectionAppointments = "appointments"
	CollectionTreatments   = "treatments"
)

// Collections lists every collection the dashboard keeps.
var Collections = []string{CollectionPatients, CollectionAppointments, CollectionTreatments}

// Key returns the backend key for a collection.
func Key(name string) string {
	return KeyPrefix + name
}

type Option func(*Adapter)

func WithPublisher(p messaging.Publisher) Option {
	return func(a *Adapter) { a.publisher = p }
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Adapter) { a.metrics = m }
}

// Adapter serializes read-modify-write cycles within one process. Writers in
// other processes are not coordinated with; the last write wins.
type Adapter struct {
	kv        kvstore.Store
	publisher messaging.Publisher
	logger    zerolog.Logger
	metrics   *metrics.Metrics
	mu        sync.Mutex
}

func NewAdapter(kv kvstore.Store, opts ...Option) *Adapter {
	a := &Adapter{kv: kv, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// KV exposes the underlying backend.
func (a *Adapter) KV() kvstore.Store {
	return a.kv
}

// Read returns the collection. A missing or unparseable value reads as an
// empty collection; only backend failures are returned.
func Read[T any](ctx context.Context, a *Adapter, name string) ([]T, error) {
	records, _, err := read[T](ctx, a, name)
	return records, err
}

func Write[T any](ctx context.Context, a *Adapter, name string, records []T) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return write(ctx, a, name, records)
}

// ReadOrInitialize writes seed only when the key is absent and returns the
// stored collection.
func ReadOrInitialize[T any](ctx context.Context, a *Adapter, name string, seed []T) ([]T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, present, err := read[T](ctx, a, name)
	if err != nil {
		return nil, err
	}
	if present {
		return records, nil
	}
	if err := write(ctx, a, name, seed); err != nil {
		return nil, err
	}
	a.logger.Info().Str("collection", name).Int("records", len(seed)).Msg("seeded collection")
	return seed, nil
}

// Update replaces the collection with fn's result. Nothing is written when
// fn returns an error.
func Update[T any](ctx context.Context, a *Adapter, name string, fn func([]T) ([]T, error)) ([]T, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	records, _, err := read[T](ctx, a, name)
	if err != nil {
		return nil, err
	}
	next, err := fn(records)
	if err != nil {
		return nil, err
	}
	if err := write(ctx, a, name, next); err != nil {
		return nil, err
	}
	return next, nil
}

// Raw returns the stored bytes for a collection, or nil when absent.
func (a *Adapter) Raw(ctx context.Context, name string) ([]byte, error) {
	raw, err := a.kv.Get(ctx, Key(name))
	if stderrors.Is(err, kvstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return raw, nil
}

// Reset deletes the named collections so the next ReadOrInitialize reseeds.
func (a *Adapter) Reset(ctx context.Context, names ...string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, name := range names {
		if err := a.kv.Delete(ctx, Key(name)); err != nil {
			return fmt.Errorf("failed to reset %s: %w", name, err)
		}
		a.publish(ctx, name)
	}
	return nil
}

func read[T any](ctx context.Context, a *Adapter, name string) ([]T, bool, error) {
	key := Key(name)
	raw, err := a.kv.Get(ctx, key)
	if stderrors.Is(err, kvstore.ErrNotFound) {
		return []T{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", name, err)
	}

	var records []T
	if err := json.Unmarshal(raw, &records); err != nil {
		a.logger.Warn().
			Err(errors.NewCorruptStoredState(key, err)).
			Str("collection", name).
			Msg("treating unparseable collection as empty")
		if a.metrics != nil {
			a.metrics.CorruptReads.WithLabelValues(key).Inc()
		}
		return []T{}, true, nil
	}
	if records == nil {
		records = []T{}
	}
	return records, true, nil
}

func write[T any](ctx context.Context, a *Adapter, name string, records []T) error {
	if records == nil {
		records = []T{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := a.kv.Set(ctx, Key(name), body); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	a.publish(ctx, name)
	return nil
}

func (a *Adapter) publish(ctx context.Context, name string) {
	if a.publisher == nil {
		return
	}
	if err := a.publisher.PublishChange(ctx, name); err != nil {
		a.logger.Warn().Err(err).Str("collection", name).Msg("failed to publish change event")
	}
}
