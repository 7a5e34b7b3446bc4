package dto

import (
	"time"

	"github.com/google/uuid"
)

type EscalateRequest struct {
	Priority   string `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignToMe bool   `json:"assign_to_me"`
}

type ListEscalationsRequest struct {
	Status string `query:"status" validate:"omitempty,oneof=open in_progress resolved"`
}

type EscalationResponse struct {
	Id              uuid.UUID  `json:"id"`
	ChatSessionId   uuid.UUID  `json:"chat_session_id"`
	OrganizationId  uuid.UUID  `json:"organization_id"`
	AssignedStaffId *uuid.UUID `json:"assigned_staff_id"`
	Priority        string     `json:"priority"`
	Status          string     `json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	ResolvedAt      *time.Time `json:"resolved_at"`
	ResolvedBy      *uuid.UUID `json:"resolved_by"`
}

type EscalationCountResponse struct {
	// Outstanding counts open and in_progress escalations of the organization.
	// Zero for staff who cannot handle any escalation.
	Outstanding int64 `json:"outstanding"`
	// AssignedInProgress counts in_progress escalations held by the caller.
	AssignedInProgress int64 `json:"assigned_in_progress"`
}
