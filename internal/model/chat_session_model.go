package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationId uuid.UUID `gorm:"type:uuid;not null;index"`
	SubjectId      uuid.UUID `gorm:"type:uuid;not null;index"`
	Status         string    `gorm:"type:varchar(20);not null;default:'active';index"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// ChatMessage rows are append-only; (chat_session_id, seq) is the ordering key.
type ChatMessage struct {
	Id            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_chat_messages_session_seq,priority:1"`
	SenderKind    string     `gorm:"type:varchar(20);not null"`
	SenderId      *uuid.UUID `gorm:"type:uuid"`
	Body          string     `gorm:"type:text;not null"`
	Seq           int64      `gorm:"not null;uniqueIndex:idx_chat_messages_session_seq,priority:2"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
