package specification

import (
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByAssignedStaffID struct {
	StaffID uuid.UUID
}

func (s ByAssignedStaffID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("assigned_staff_id = ?", s.StaffID)
}

// NotResolved selects escalations still awaiting handling
type NotResolved struct{}

func (s NotResolved) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status <> ?", constant.EscalationStatusResolved)
}

// OrderByPriority sorts high before medium before low, oldest first within a priority
type OrderByPriority struct{}

func (s OrderByPriority) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END DESC").
		Order("created_at ASC")
}

// FromEscalationFilter expands a filter into the specifications it implies
func FromEscalationFilter(f entity.EscalationFilter) []Specification {
	specs := []Specification{ByOrganizationID{OrganizationID: f.OrganizationId}}
	if f.ChatSessionId != nil {
		specs = append(specs, ByChatSessionID{ChatSessionID: *f.ChatSessionId})
	}
	if f.AssignedStaffId != nil {
		specs = append(specs, ByAssignedStaffID{StaffID: *f.AssignedStaffId})
	}
	if len(f.Statuses) > 0 {
		specs = append(specs, ByStatuses{Statuses: f.Statuses})
	}
	return specs
}
