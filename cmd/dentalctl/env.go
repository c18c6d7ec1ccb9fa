package main

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/internal/bootstrap"
	"github.com/jwalitptl/dental-api/internal/config"
	"github.com/jwalitptl/dental-api/internal/model"
	"github.com/jwalitptl/dental-api/internal/store"
	"github.com/jwalitptl/dental-api/pkg/kvstore"
	"github.com/jwalitptl/dental-api/pkg/messaging"
)

// env is what every subcommand works against. Writes go through the
// adapter, so a running API sharing the broker drops its dashboard cache.
type env struct {
	cfg     *config.Config
	logger  zerolog.Logger
	kv      kvstore.Store
	broker  messaging.Broker
	adapter *store.Adapter
}

type openFunc func(ctx context.Context, configPath string) (*env, error)

func openEnv(ctx context.Context, configPath string) (*env, error) {
	if configPath == "" {
		configPath = os.Getenv(bootstrap.ConfigFileEnv)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger := bootstrap.Logger(cfg.Log)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	model.SetZonelessLocation(loc)

	kv, err := bootstrap.OpenStore(ctx, cfg.Store, nil, logger)
	if err != nil {
		return nil, err
	}
	broker, err := bootstrap.OpenBroker(ctx, cfg.Messaging, logger)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}

	return &env{
		cfg:     cfg,
		logger:  logger,
		kv:      kv,
		broker:  broker,
		adapter: bootstrap.NewAdapter(kv, broker, cfg.Messaging.Channel, nil, logger),
	}, nil
}

func (e *env) Close() error {
	return errors.Join(e.broker.Close(), e.kv.Close())
}
