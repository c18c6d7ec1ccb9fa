package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/kvstore/badger"
	"github.com/jwalitptl/dental-api/pkg/kvstore/memory"
	"github.com/jwalitptl/dental-api/pkg/kvstore/postgres"
	"github.com/jwalitptl/dental-api/pkg/kvstore/redis"
	"github.com/jwalitptl/dental-api/pkg/security"
)

// BackendConfig selects and configures the key-value backend.
type BackendConfig struct {
	Backend  string          `mapstructure:"backend"`
	Badger   badger.Config   `mapstructure:"badger"`
	Redis    redis.Config    `mapstructure:"redis"`
	Postgres postgres.Config `mapstructure:"postgres"`
	// EncryptionKey is a hex AES key. When set every value is sealed at rest.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// OpenBackend connects to the configured backend.
func OpenBackend(ctx context.Context, cfg BackendConfig, logger zerolog.Logger) (kvstore.Store, error) {
	var (
		kv  kvstore.Store
		err error
	)
	switch cfg.Backend {
	case "", kvstore.BackendMemory:
		kv = memory.New()
	case kvstore.BackendBadger:
		kv, err = openBadger(cfg.Badger, logger)
	case kvstore.BackendRedis:
		kv, err = openRedis(ctx, cfg.Redis)
	case kvstore.BackendPostgres:
		kv, err = openPostgres(ctx, cfg.Postgres)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Backend, err)
	}
	if cfg.EncryptionKey != "" {
		enc, err := security.NewAESEncryptorFromHex(cfg.EncryptionKey)
		if err != nil {
			_ = kv.Close()
			return nil, fmt.Errorf("invalid store encryption key: %w", err)
		}
		kv = kvstore.Encrypt(kv, enc)
	}
	logger.Info().
		Str("backend", backendName(cfg.Backend)).
		Bool("encrypted", cfg.EncryptionKey != "").
		Msg("key-value store ready")
	return kv, nil
}

func backendName(b string) string {
	if b == "" {
		return kvstore.BackendMemory
	}
	return b
}

func openBadger(cfg badger.Config, logger zerolog.Logger) (kvstore.Store, error) {
	s, err := badger.Open(cfg, logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openRedis(ctx context.Context, cfg redis.Config) (kvstore.Store, error) {
	s, err := redis.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func openPostgres(ctx context.Context, cfg postgres.Config) (kvstore.Store, error) {
	s, err := postgres.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return s, nil
}
