package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"warden/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// EventEnvelope wraps an event payload on the wire
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Timestamp     time.Time       `json:"timestamp"`
	SourceService string          `json:"source_service"`
	Payload       json.RawMessage `json:"payload"`
}

// natsPublisher is the part of NATSClient the event publisher needs
type natsPublisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// NATSEventPublisher forwards events to NATS after handing them to the local bus
type NATSEventPublisher struct {
	natsClient    natsPublisher
	subjectMapper *EventSubjectMapper
	local         events.Publisher
	source        string
}

// NewNATSEventPublisher creates a new NATS event publisher. local may be nil.
func NewNATSEventPublisher(natsClient natsPublisher, subjectMapper *EventSubjectMapper, local events.Publisher, source string) *NATSEventPublisher {
	return &NATSEventPublisher{
		natsClient:    natsClient,
		subjectMapper: subjectMapper,
		local:         local,
		source:        source,
	}
}

// Publish dispatches locally first, then publishes the envelope to NATS
func (p *NATSEventPublisher) Publish(event events.Event) error {
	if p.local != nil {
		if err := p.local.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Local event dispatch failed")
		}
	}

	subject := p.subjectMapper.MapEventToSubject(event)

	envelope, err := p.NewEnvelope(event)
	if err != nil {
		return err
	}

	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event envelope: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.natsClient.Publish(ctx, subject, data); err != nil {
		if strings.Contains(err.Error(), "no response from stream") {
			return nil
		}
		return fmt.Errorf("failed to publish event to NATS: %w", err)
	}

	log.WithFields(log.Fields{
		"eventType": event.Type(),
		"eventId":   envelope.EventID,
		"subject":   subject,
	}).Debug("Successfully published event to NATS")

	return nil
}

// NewEnvelope serializes event into a fresh envelope
func (p *NATSEventPublisher) NewEnvelope(event events.Event) (*EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     string(event.Type()),
		Timestamp:     time.Now().UTC(),
		SourceService: p.source,
		Payload:       payload,
	}, nil
}
