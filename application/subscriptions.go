package application

import (
	"context"

	"warden/events"

	log "github.com/sirupsen/logrus"
)

// RegisterApplicationSubscriptions registers all application-level event subscriptions.
// Pool and registration events are narrated to the guild log channel; the rest are logged.
func RegisterApplicationSubscriptions(bus *events.Bus, narrator *Narrator) {
	bus.Subscribe(events.EventTypeWorkerAcquired, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.WorkerAcquiredEvent)
		if !ok {
			return
		}
		narrator.Narratef(ctx, e.GuildID, "🎧 Worker '%s' now serves <#%d>", e.Prefix, e.ChannelID)
	})

	bus.Subscribe(events.EventTypeWorkerReleased, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.WorkerReleasedEvent)
		if !ok {
			return
		}
		narrator.Narratef(ctx, e.GuildID, "🎧 Worker '%s' released from <#%d> (%s)", e.Prefix, e.ChannelID, e.Reason)
	})

	bus.Subscribe(events.EventTypeMemberRegistered, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.MemberRegisteredEvent)
		if !ok {
			return
		}
		narrator.Narratef(ctx, e.GuildID, "📝 <@%d> registered as '%s'", e.UserID, e.Nickname)
	})

	logOnly := func(ctx context.Context, event events.Event) {
		log.WithFields(log.Fields{
			"eventType": event.Type(),
			"event":     event,
		}).Info("Domain event")
	}
	bus.Subscribe(events.EventTypeGuildRegistered, logOnly)
	bus.Subscribe(events.EventTypeGuildUnregistered, logOnly)
	bus.Subscribe(events.EventTypeRegistrationPending, logOnly)
}
