package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/jwalitptl/dental-api/pkg/metrics"
)

type instrumented struct {
	next    Store
	metrics *metrics.Metrics
}

// Instrument wraps s so every operation is counted and timed.
func Instrument(s Store, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &instrumented{next: s, metrics: m}
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "miss"
	case err != nil:
		status = "error"
	}
	i.metrics.StoreOperations.WithLabelValues(op, status).Inc()
	i.metrics.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (i *instrumented) Get(ctx context.Context, key string) (b []byte, err error) {
	defer func(start time.Time) { i.observe("get", start, err) }(time.Now())
	return i.next.Get(ctx, key)
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) (err error) {
	defer func(start time.Time) { i.observe("set", start, err) }(time.Now())
	return i.next.Set(ctx, key, value)
}

func (i *instrumented) Delete(ctx context.Context, key string) (err error) {
	defer func(start time.Time) { i.observe("delete", start, err) }(time.Now())
	return i.next.Delete(ctx, key)
}

func (i *instrumented) Ping(ctx context.Context) error {
	return i.next.Ping(ctx)
}

func (i *instrumented) Close() error {
	return i.next.Close()
}
