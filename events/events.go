package events

import (
	"context"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeGuildRegistered     EventType = "guild_registered"
	EventTypeGuildUnregistered   EventType = "guild_unregistered"
	EventTypeWorkerAcquired      EventType = "worker_acquired"
	EventTypeWorkerReleased      EventType = "worker_released"
	EventTypeRegistrationPending EventType = "registration_pending"
	EventTypeMemberRegistered    EventType = "member_registered"
)

// AllEventTypes lists every event type, in declaration order
var AllEventTypes = []EventType{
	EventTypeGuildRegistered,
	EventTypeGuildUnregistered,
	EventTypeWorkerAcquired,
	EventTypeWorkerReleased,
	EventTypeRegistrationPending,
	EventTypeMemberRegistered,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// GuildRegisteredEvent is emitted when a guild is first seen and its rows are created
type GuildRegisteredEvent struct {
	GuildID     snowflake.ID `json:"guild_id"`
	WorkerCount int          `json:"worker_count"`
}

func (e GuildRegisteredEvent) Type() EventType {
	return EventTypeGuildRegistered
}

// GuildUnregisteredEvent is emitted when a guild's settings and bindings are removed
type GuildUnregisteredEvent struct {
	GuildID snowflake.ID `json:"guild_id"`
}

func (e GuildUnregisteredEvent) Type() EventType {
	return EventTypeGuildUnregistered
}

// WorkerAcquiredEvent is emitted when a worker is bound to a voice destination
type WorkerAcquiredEvent struct {
	GuildID   snowflake.ID `json:"guild_id"`
	ChannelID snowflake.ID `json:"channel_id"`
	Prefix    string       `json:"prefix"`
}

func (e WorkerAcquiredEvent) Type() EventType {
	return EventTypeWorkerAcquired
}

// ReleaseReason says why a binding ended
type ReleaseReason string

const (
	ReleaseReasonCommand    ReleaseReason = "command"
	ReleaseReasonDisconnect ReleaseReason = "disconnect"
	ReleaseReasonRestart    ReleaseReason = "restart"
)

// WorkerReleasedEvent is emitted when a worker's binding is cleared
type WorkerReleasedEvent struct {
	GuildID   snowflake.ID  `json:"guild_id"`
	ChannelID snowflake.ID  `json:"channel_id"`
	Prefix    string        `json:"prefix"`
	Reason    ReleaseReason `json:"reason"`
}

func (e WorkerReleasedEvent) Type() EventType {
	return EventTypeWorkerReleased
}

// RegistrationPendingEvent is emitted when a member is left waiting for the naming command
type RegistrationPendingEvent struct {
	GuildID snowflake.ID `json:"guild_id"`
	UserID  snowflake.ID `json:"user_id"`
}

func (e RegistrationPendingEvent) Type() EventType {
	return EventTypeRegistrationPending
}

// MemberRegisteredEvent is emitted when a pending registration is consumed
type MemberRegisteredEvent struct {
	GuildID  snowflake.ID `json:"guild_id"`
	UserID   snowflake.ID `json:"user_id"`
	Nickname string       `json:"nickname"`
}

func (e MemberRegisteredEvent) Type() EventType {
	return EventTypeMemberRegistered
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// Publish emits the event with a background context
func (b *Bus) Publish(event Event) error {
	b.Emit(context.Background(), event)
	return nil
}

// Publisher is anything events can be handed to
type Publisher interface {
	Publish(event Event) error
}

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    Publisher
	pending []Event // stashed until Flush
}

func NewTransactionalBus(real Publisher) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) error {
	log.WithFields(log.Fields{
		"eventType":    e.Type(),
		"pendingCount": len(b.pending),
	}).Debug("Adding event to transactional bus pending queue")
	b.pending = append(b.pending, e)
	return nil
}

// Pending returns the events queued so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// called after successful DB commit
func (b *TransactionalBus) Flush(ctx context.Context) error {
	for _, ev := range b.pending {
		if b.real == nil {
			continue
		}
		if err := b.real.Publish(ev); err != nil {
			// The transaction already committed; a lost event is logged, not retried
			log.WithFields(log.Fields{
				"eventType": ev.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}
	b.pending = nil
	return nil
}

// called after db rollback or to clear state.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
