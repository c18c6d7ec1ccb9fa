// Package memory is an in-process broker: every subscriber of a channel gets
// its own buffered copy of each published message.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jwalitptl/dental-api/pkg/messaging"
)

var ErrClosed = errors.New("broker closed")

const bufferSize = 100

type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	closed bool
}

var _ messaging.Broker = (*Broker)(nil)

func New() *Broker {
	return &Broker{subs: make(map[string]map[chan []byte]struct{})}
}

func (b *Broker) Publish(_ context.Context, channel string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	for ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
			// slow subscriber; drop rather than block the writer
		}
	}
	return nil
}

func (b *Broker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	ch := make(chan []byte, bufferSize)
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[chan []byte]struct{})
	}
	b.subs[channel][ch] = struct{}{}

	go func() {
		<-ctx.Done()
		b.unsubscribe(channel, ch)
	}()
	return ch, nil
}

func (b *Broker) unsubscribe(channel string, ch chan []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[channel][ch]; ok {
		delete(b.subs[channel], ch)
		close(ch)
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, set := range b.subs {
		for ch := range set {
			close(ch)
		}
	}
	b.subs = make(map[string]map[chan []byte]struct{})
	return nil
}
