package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/dental-api/pkg/circuitbreaker"
	"github.com/jwalitptl/dental-api/pkg/metrics"
)

// EventCollectionChanged is published after every successful collection write.
const EventCollectionChanged = "collection.changed"

// ChangeEvent tells listeners that a stored collection was rewritten.
type ChangeEvent struct {
	Type       string    `json:"type"`
	Collection string    `json:"collection"`
	At         time.Time `json:"at"`
}

// ChangePublisher publishes ChangeEvents on one broker channel.
type ChangePublisher struct {
	broker  Broker
	channel string
	metrics *metrics.Metrics
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

func NewChangePublisher(broker Broker, channel string, m *metrics.Metrics) *ChangePublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &ChangePublisher{broker: broker, channel: channel, metrics: m, now: time.Now}
}

// WithBreaker stops publishing while the broker keeps failing, so writes do
// not each wait out a dead broker.
func (p *ChangePublisher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *ChangePublisher {
	p.breaker = cb
	return p
}

func (p *ChangePublisher) PublishChange(ctx context.Context, collection string) error {
	publish := func() error {
		return p.broker.Publish(ctx, p.channel, ChangeEvent{
			Type:       EventCollectionChanged,
			Collection: collection,
			At:         p.now(),
		})
	}

	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(publish)
	} else {
		err = publish()
	}

	if p.metrics != nil {
		status := "ok"
		switch {
		case errors.Is(err, circuitbreaker.ErrOpen):
			status = "skipped"
		case err != nil:
			status = "error"
		}
		p.metrics.EventsPublished.WithLabelValues(EventCollectionChanged, status).Inc()
	}
	return err
}

// ConsumeChanges delivers decoded ChangeEvents to handler until ctx ends or
// the subscription closes. Undecodable payloads are logged and skipped.
func ConsumeChanges(ctx context.Context, broker Broker, channel string, logger zerolog.Logger, handler func(ChangeEvent)) error {
	if channel == "" {
		channel = DefaultChannel
	}
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}

	go func() {
		for payload := range msgs {
			var evt ChangeEvent
			if err := json.Unmarshal(payload, &evt); err != nil {
				logger.Warn().Err(err).Str("channel", channel).Msg("dropping undecodable change event")
				continue
			}
			handler(evt)
		}
	}()
	return nil
}
