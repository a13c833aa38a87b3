package infrastructure

import (
	"fmt"

	"warden/events"
)

var eventSubjects = map[events.EventType]string{
	events.EventTypeGuildRegistered:     "warden.guild.registered",
	events.EventTypeGuildUnregistered:   "warden.guild.unregistered",
	events.EventTypeWorkerAcquired:      "warden.worker.acquired",
	events.EventTypeWorkerReleased:      "warden.worker.released",
	events.EventTypeRegistrationPending: "warden.member.pending",
	events.EventTypeMemberRegistered:    "warden.member.registered",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts an event to its NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("warden.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects this service publishes to, in event type order
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subjects = append(subjects, eventSubjects[eventType])
	}
	return subjects
}
