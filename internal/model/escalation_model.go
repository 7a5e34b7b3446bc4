package model

import (
	"time"

	"github.com/google/uuid"
)

// Escalation rows are never deleted. The partial unique index allowing a single
// non-resolved escalation per session is created by cmd/migrate.
type Escalation struct {
	Id              uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatSessionId   uuid.UUID  `gorm:"type:uuid;not null;index"`
	OrganizationId  uuid.UUID  `gorm:"type:uuid;not null;index:idx_escalations_org_status,priority:1"`
	AssignedStaffId *uuid.UUID `gorm:"type:uuid;index"`
	Priority        string     `gorm:"type:varchar(10);not null;default:'medium'"`
	Status          string     `gorm:"type:varchar(20);not null;default:'open';index:idx_escalations_org_status,priority:2"`
	CreatedAt       time.Time  `gorm:"autoCreateTime"`
	ResolvedAt      *time.Time
	ResolvedBy      *uuid.UUID `gorm:"type:uuid"`
}

func (Escalation) TableName() string {
	return "escalations"
}
