package contract

import (
	"context"
	"time"

	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type EscalationRepository interface {
	Create(ctx context.Context, escalation *entity.Escalation) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Escalation, error)
	// FindActiveBySession returns the non-resolved escalation of a session, if any.
	FindActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Escalation, error)
	// FindAll lists matching escalations, highest priority first then oldest first.
	FindAll(ctx context.Context, filter entity.EscalationFilter) ([]*entity.Escalation, error)
	Count(ctx context.Context, filter entity.EscalationFilter) (int64, error)
	// ClaimUnassigned is the single conditional write behind first-claim-wins:
	// it assigns staffId and moves the escalation to in_progress only when no
	// one holds it and it is still open.
	ClaimUnassigned(ctx context.Context, id uuid.UUID, staffId uuid.UUID) (bool, error)
	// MarkResolved resolves an open or in_progress escalation.
	MarkResolved(ctx context.Context, id uuid.UUID, staffId uuid.UUID, at time.Time) (bool, error)
}
