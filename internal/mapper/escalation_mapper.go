package mapper

import (
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/model"
)

type EscalationMapper struct{}

func NewEscalationMapper() *EscalationMapper {
	return &EscalationMapper{}
}

func (m *EscalationMapper) ToEntity(e *model.Escalation) *entity.Escalation {
	if e == nil {
		return nil
	}

	return &entity.Escalation{
		Id:              e.Id,
		ChatSessionId:   e.ChatSessionId,
		OrganizationId:  e.OrganizationId,
		AssignedStaffId: e.AssignedStaffId,
		Priority:        e.Priority,
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
		ResolvedAt:      e.ResolvedAt,
		ResolvedBy:      e.ResolvedBy,
	}
}

func (m *EscalationMapper) ToModel(e *entity.Escalation) *model.Escalation {
	if e == nil {
		return nil
	}

	return &model.Escalation{
		Id:              e.Id,
		ChatSessionId:   e.ChatSessionId,
		OrganizationId:  e.OrganizationId,
		AssignedStaffId: e.AssignedStaffId,
		Priority:        e.Priority,
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
		ResolvedAt:      e.ResolvedAt,
		ResolvedBy:      e.ResolvedBy,
	}
}

func (m *EscalationMapper) ToEntities(models []*model.Escalation) []*entity.Escalation {
	entities := make([]*entity.Escalation, len(models))
	for i, e := range models {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
