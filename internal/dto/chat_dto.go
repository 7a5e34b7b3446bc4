package dto

import (
	"time"

	"github.com/google/uuid"
)

type OpenSessionRequest struct {
	// Required for staff callers; patients always open a session for themselves.
	SubjectId *uuid.UUID `json:"subject_id"`
}

type AppendMessageRequest struct {
	Body string `json:"body" validate:"required,max=4000"`
}

type ChatSessionResponse struct {
	Id             uuid.UUID           `json:"id"`
	OrganizationId uuid.UUID           `json:"organization_id"`
	SubjectId      uuid.UUID           `json:"subject_id"`
	Status         string              `json:"status"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Escalation     *EscalationResponse `json:"escalation,omitempty"`
}

type ChatMessageResponse struct {
	Id            uuid.UUID  `json:"id"`
	ChatSessionId uuid.UUID  `json:"chat_session_id"`
	SenderKind    string     `json:"sender_kind"`
	SenderId      *uuid.UUID `json:"sender_id"`
	Body          string     `json:"body"`
	Seq           int64      `json:"seq"`
	CreatedAt     time.Time  `json:"created_at"`
}

// MessageAppendedEvent is the in-process bus payload for a stored message.
type MessageAppendedEvent struct {
	MessageId      uuid.UUID `json:"message_id"`
	ChatSessionId  uuid.UUID `json:"chat_session_id"`
	OrganizationId uuid.UUID `json:"organization_id"`
	SenderKind     string    `json:"sender_kind"`
	Seq            int64     `json:"seq"`
}

type SessionStatusEvent struct {
	ChatSessionId uuid.UUID           `json:"chat_session_id"`
	Status        string              `json:"status"`
	Escalation    *EscalationResponse `json:"escalation,omitempty"`
}
