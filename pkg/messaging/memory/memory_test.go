package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dental-api/pkg/circuitbreaker"
	"github.com/jwalitptl/dental-api/pkg/messaging"
)

func TestBroker_FanOut(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := b.Subscribe(ctx, "changes")
	require.NoError(t, err)
	second, err := b.Subscribe(ctx, "changes")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "changes", map[string]string{"collection": "patients"}))

	for _, ch := range []<-chan []byte{first, second} {
		select {
		case msg := <-ch:
			assert.JSONEq(t, `{"collection":"patients"}`, string(msg))
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestBroker_UnsubscribeOnCancel(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "changes")
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestBroker_Closed(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	assert.ErrorIs(t, b.Publish(context.Background(), "changes", "x"), ErrClosed)
	_, err := b.Subscribe(context.Background(), "changes")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestChangePublisher_RoundTrip(t *testing.T) {
	b := New()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan messaging.ChangeEvent, 1)
	require.NoError(t, messaging.ConsumeChanges(ctx, b, "", zerolog.Nop(), func(evt messaging.ChangeEvent) {
		got <- evt
	}))

	pub := messaging.NewChangePublisher(b, "", nil)
	require.NoError(t, pub.PublishChange(ctx, "appointments"))

	select {
	case evt := <-got:
		assert.Equal(t, messaging.EventCollectionChanged, evt.Type)
		assert.Equal(t, "appointments", evt.Collection)
	case <-time.After(time.Second):
		t.Fatal("change event not consumed")
	}
}

func TestChangePublisher_BreakerSkipsDeadBroker(t *testing.T) {
	b := New()
	require.NoError(t, b.Close())

	pub := messaging.NewChangePublisher(b, "", nil).
		WithBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{MaxFailures: 1, Timeout: time.Hour}))

	assert.ErrorIs(t, pub.PublishChange(context.Background(), "patients"), ErrClosed)
	assert.ErrorIs(t, pub.PublishChange(context.Background(), "patients"), circuitbreaker.ErrOpen)
}
