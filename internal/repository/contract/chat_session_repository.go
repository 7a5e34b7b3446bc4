package contract

import (
	"context"

	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type ChatSessionRepository interface {
	Create(ctx context.Context, session *entity.ChatSession) error
	// FindById returns nil, nil when the session does not exist.
	FindById(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error)
	// TransitionStatus sets the status to `to` only when the current status is in `from`.
	// It reports whether a row changed.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error)
}
