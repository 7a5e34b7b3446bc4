package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	SenderKind    string
	SenderId      *uuid.UUID // nil for bot
	Body          string
	Seq           int64
	CreatedAt     time.Time
}
