package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Publisher defines the interface for publishing change events
type Publisher interface {
	PublishChange(ctx context.Context, collection string) error
}

// Backend names accepted by configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultChannel carries collection change events.
const DefaultChannel = "dental:changes"
