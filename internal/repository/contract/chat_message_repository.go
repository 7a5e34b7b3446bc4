package contract

import (
	"context"

	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	// AppendNext stores message with seq = max(seq)+1 for its session and bumps the
	// session's last activity, all in one atomic write. Fails with
	// apperror.ErrSessionClosed when the session is resolved.
	AppendNext(ctx context.Context, message *entity.ChatMessage) error
	// FindBySession returns messages with seq > afterSeq in ascending seq order.
	FindBySession(ctx context.Context, sessionId uuid.UUID, afterSeq int64) ([]*entity.ChatMessage, error)
	// FindLatest returns up to limit most recent messages in ascending seq order.
	FindLatest(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error)
}
