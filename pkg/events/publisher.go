package events

import (
	"context"
	"time"

	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Sink is the transport an event leaves the process through.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher abstracts lifecycle publishing for the escalation domain.
type Publisher interface {
	PublishEscalationCreated(ctx context.Context, e *entity.Escalation, requestedBy uuid.UUID)
	PublishEscalationAssigned(ctx context.Context, e *entity.Escalation)
	PublishEscalationResolved(ctx context.Context, e *entity.Escalation)
	PublishSessionResolved(ctx context.Context, session *entity.ChatSession, resolvedBy uuid.UUID)
}

// LifecyclePublisher emits events to a Sink, typically NATS JetStream.
// Publishing is best effort: failures are logged, never returned.
type LifecyclePublisher struct {
	sink   Sink
	logger logger.ILogger
}

func NewLifecyclePublisher(sink Sink, log logger.ILogger) *LifecyclePublisher {
	return &LifecyclePublisher{
		sink:   sink,
		logger: log,
	}
}

func (p *LifecyclePublisher) publish(ctx context.Context, code string, data map[string]interface{}) {
	if p.sink == nil {
		return
	}

	now := time.Now()
	data["occurred_at"] = now
	evt := BaseEvent{
		Type:       code,
		Data:       data,
		OccurredAt: now,
	}

	if err := p.sink.Publish(ctx, evt); err != nil {
		p.logger.Error("EVENTS", "Failed to publish "+code+" event", map[string]interface{}{"error": err.Error()})
	}
}

func escalationData(e *entity.Escalation) map[string]interface{} {
	data := map[string]interface{}{
		"escalation_id":   e.Id.String(),
		"chat_session_id": e.ChatSessionId.String(),
		"organization_id": e.OrganizationId.String(),
		"priority":        e.Priority,
		"status":          e.Status,
		"entity_type":     "escalation",
		"entity_id":       e.Id.String(),
	}
	if e.AssignedStaffId != nil {
		data["assigned_staff_id"] = e.AssignedStaffId.String()
	}
	return data
}

func (p *LifecyclePublisher) PublishEscalationCreated(ctx context.Context, e *entity.Escalation, requestedBy uuid.UUID) {
	data := escalationData(e)
	data["actor_id"] = requestedBy.String()
	p.publish(ctx, EscalationCreated, data)
}

func (p *LifecyclePublisher) PublishEscalationAssigned(ctx context.Context, e *entity.Escalation) {
	p.publish(ctx, EscalationAssigned, escalationData(e))
}

func (p *LifecyclePublisher) PublishEscalationResolved(ctx context.Context, e *entity.Escalation) {
	data := escalationData(e)
	if e.ResolvedBy != nil {
		data["actor_id"] = e.ResolvedBy.String()
	}
	p.publish(ctx, EscalationResolved, data)
}

func (p *LifecyclePublisher) PublishSessionResolved(ctx context.Context, session *entity.ChatSession, resolvedBy uuid.UUID) {
	p.publish(ctx, ChatSessionResolved, map[string]interface{}{
		"chat_session_id": session.Id.String(),
		"organization_id": session.OrganizationId.String(),
		"subject_id":      session.SubjectId.String(),
		"actor_id":        resolvedBy.String(),
		"entity_type":     "chat_session",
		"entity_id":       session.Id.String(),
	})
}
