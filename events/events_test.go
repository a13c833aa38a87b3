package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionalBus_FlushDeliversToMainBus(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	received := make(chan WorkerAcquiredEvent, 1)
	mainBus.Subscribe(EventTypeWorkerAcquired, func(ctx context.Context, event Event) {
		if e, ok := event.(WorkerAcquiredEvent); ok {
			received <- e
		}
	})

	ev := WorkerAcquiredEvent{GuildID: 1, ChannelID: 2, Prefix: "music1"}
	require.NoError(t, transactionalBus.Publish(ev))
	assert.Len(t, transactionalBus.Pending(), 1)

	require.NoError(t, transactionalBus.Flush(context.Background()))
	assert.Empty(t, transactionalBus.Pending())

	select {
	case got := <-received:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestTransactionalBus_DiscardDropsEvents(t *testing.T) {
	mainBus := NewBus()
	transactionalBus := NewTransactionalBus(mainBus)

	var mu sync.Mutex
	calls := 0
	mainBus.SubscribeAll(func(ctx context.Context, event Event) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	_ = transactionalBus.Publish(GuildRegisteredEvent{GuildID: 1, WorkerCount: 3})
	transactionalBus.Discard()
	require.NoError(t, transactionalBus.Flush(context.Background()))

	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, calls)
}

func TestBus_SubscribeAllCoversEveryType(t *testing.T) {
	bus := NewBus()

	var wg sync.WaitGroup
	wg.Add(len(AllEventTypes))
	seen := make(chan EventType, len(AllEventTypes))
	bus.SubscribeAll(func(ctx context.Context, event Event) {
		defer wg.Done()
		seen <- event.Type()
	})

	all := []Event{
		GuildRegisteredEvent{},
		GuildUnregisteredEvent{},
		WorkerAcquiredEvent{},
		WorkerReleasedEvent{},
		RegistrationPendingEvent{},
		MemberRegisteredEvent{},
	}
	for _, e := range all {
		require.NoError(t, bus.Publish(e))
	}
	wg.Wait()
	close(seen)

	got := map[EventType]bool{}
	for typ := range seen {
		got[typ] = true
	}
	for _, typ := range AllEventTypes {
		assert.True(t, got[typ], "missing %s", typ)
	}
}
