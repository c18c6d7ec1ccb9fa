// Package bootstrap builds the shared infrastructure both binaries start
// from: logger, key-value store, broker and data store adapter.
package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/store"
	"github.com/jwalitptl/dental-api/pkg/circuitbreaker"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	kvredis "github.com/jwalitptl/dental-api/pkg/kvstore/redis"
	"github.com/jwalitptl/dental-api/pkg/logger"
	"github.com/jwalitptl/dental-api/pkg/messaging"
	"github.com/jwalitptl/dental-api/pkg/messaging/memory"
	"github.com/jwalitptl/dental-api/pkg/messaging/redis"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

// ConfigFileEnv names the variable holding an explicit config file path.
const ConfigFileEnv = config.EnvPrefix + "_CONFIG_FILE"

// Logger builds the root logger from cfg and installs it globally.
func Logger(cfg config.LogConfig) zerolog.Logger {
	return logger.New(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.JSON,
	})
}

// OpenStore opens the configured backend, instrumented with m when non-nil.
func OpenStore(ctx context.Context, cfg store.BackendConfig, m *metrics.Metrics, log zerolog.Logger) (kvstore.Store, error) {
	kv, err := store.OpenBackend(ctx, cfg, logger.Component(log, "kvstore"))
	if err != nil {
		return nil, err
	}
	return kvstore.Instrument(kv, m), nil
}

// OpenBroker connects the change-event broker.
func OpenBroker(ctx context.Context, cfg config.MessagingConfig, log zerolog.Logger) (messaging.Broker, error) {
	switch cfg.Backend {
	case "", messaging.BackendMemory:
		return memory.New(), nil
	case messaging.BackendRedis:
		client, err := kvredis.NewClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		broker, err := redis.NewRedisBroker(ctx, client, logger.Component(log, "broker"))
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		return broker, nil
	default:
		return nil, fmt.Errorf("unknown messaging backend %q", cfg.Backend)
	}
}

// NewAdapter builds the data store adapter publishing every write on channel.
func NewAdapter(kv kvstore.Store, broker messaging.Broker, channel string, m *metrics.Metrics, log zerolog.Logger) *store.Adapter {
	return store.NewAdapter(kv,
		store.WithPublisher(messaging.NewChangePublisher(broker, channel, m).
			WithBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultSettings("change-publisher")))),
		store.WithLogger(logger.Component(log, "store")),
		store.WithMetrics(m),
	)
}
