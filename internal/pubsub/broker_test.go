package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stateChange struct {
	Command string
	Busy    bool
}

func receive[T any](t *testing.T, ch <-chan Event[T]) Event[T] {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed unexpectedly")
		return ev
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for event")
	}
	return Event[T]{}
}

func TestBroker_DeliversPayload(t *testing.T) {
	broker := NewBroker[stateChange]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := broker.Subscribe(ctx)
	broker.Publish(ChangedEvent, stateChange{Command: "save", Busy: true})

	ev := receive(t, ch)
	require.Equal(t, ChangedEvent, ev.Type)
	require.Equal(t, "save", ev.Payload.Command)
	require.True(t, ev.Payload.Busy)
	require.False(t, ev.Timestamp.IsZero())
}

func TestBroker_FansOutToEverySubscriber(t *testing.T) {
	broker := NewBroker[int]()
	defer broker.Close()

	ctx := context.Background()
	subs := []<-chan Event[int]{
		broker.Subscribe(ctx),
		broker.Subscribe(ctx),
		broker.Subscribe(ctx),
	}
	require.Equal(t, 3, broker.SubscriberCount())

	broker.Publish(CreatedEvent, 42)

	for i, ch := range subs {
		ev := receive(t, ch)
		require.Equal(t, 42, ev.Payload, "subscriber %d", i)
	}
}

func TestBroker_ContextCancellationReleasesSubscriber(t *testing.T) {
	broker := NewBroker[string]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := broker.Subscribe(ctx)
	require.Equal(t, 1, broker.SubscriberCount())

	cancel()

	require.Eventually(t, func() bool { return broker.SubscriberCount() == 0 },
		time.Second, 5*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed")
}

func TestBroker_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	broker := NewBrokerWithBuffer[int](1)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(ChangedEvent, 1)

	done := make(chan struct{})
	go func() {
		broker.Publish(ChangedEvent, 2)
		broker.Publish(ChangedEvent, 3)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Publish blocked")
	}

	require.Equal(t, 1, receive(t, ch).Payload)
}

func TestBroker_BufferSizeClampedToOne(t *testing.T) {
	broker := NewBrokerWithBuffer[int](0)
	defer broker.Close()

	ch := broker.Subscribe(context.Background())
	broker.Publish(ChangedEvent, 9)

	require.Equal(t, 9, receive(t, ch).Payload)
}

func TestBroker_CloseClosesSubscribers(t *testing.T) {
	broker := NewBroker[string]()
	ctx := context.Background()

	ch1 := broker.Subscribe(ctx)
	ch2 := broker.Subscribe(ctx)

	broker.Close()

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)
	require.Equal(t, 0, broker.SubscriberCount())

	late := broker.Subscribe(ctx)
	_, ok := <-late
	require.False(t, ok, "subscribe after close returns a closed channel")

	broker.Publish(ChangedEvent, "ignored")
}

func TestBroker_CloseIdempotent(t *testing.T) {
	broker := NewBroker[string]()
	ch := broker.Subscribe(context.Background())

	broker.Close()
	broker.Close()

	_, ok := <-ch
	require.False(t, ok)
}

func TestBroker_CancelAfterCloseDoesNotPanic(t *testing.T) {
	broker := NewBroker[string]()
	ctx, cancel := context.WithCancel(context.Background())
	_ = broker.Subscribe(ctx)

	broker.Close()
	cancel()
	time.Sleep(10 * time.Millisecond)
}
