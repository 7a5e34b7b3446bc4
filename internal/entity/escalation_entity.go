package entity

import (
	"time"

	"github.com/google/uuid"
)

type Escalation struct {
	Id              uuid.UUID
	ChatSessionId   uuid.UUID
	OrganizationId  uuid.UUID
	AssignedStaffId *uuid.UUID
	Priority        string
	Status          string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
	ResolvedBy      *uuid.UUID
}

// IsAssignedTo reports whether staffId holds this escalation.
func (e *Escalation) IsAssignedTo(staffId uuid.UUID) bool {
	return e.AssignedStaffId != nil && *e.AssignedStaffId == staffId
}

// EscalationFilter narrows escalation listings. Zero values mean "any".
type EscalationFilter struct {
	OrganizationId  uuid.UUID
	ChatSessionId   *uuid.UUID
	AssignedStaffId *uuid.UUID
	Statuses        []string
}
