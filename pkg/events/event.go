package events

import "time"

// Lifecycle event codes. The NATS subject is "events.<code>".
const (
	EscalationCreated   = "ESCALATION_CREATED"
	EscalationAssigned  = "ESCALATION_ASSIGNED"
	EscalationResolved  = "ESCALATION_RESOLVED"
	ChatSessionResolved = "CHAT_SESSION_RESOLVED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "ESCALATION_CREATED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
