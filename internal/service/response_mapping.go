package service

import (
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/entity"
)

func toChatSessionResponse(s *entity.ChatSession, esc *entity.Escalation) *dto.ChatSessionResponse {
	res := &dto.ChatSessionResponse{
		Id:             s.Id,
		OrganizationId: s.OrganizationId,
		SubjectId:      s.SubjectId,
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
	if esc != nil {
		res.Escalation = toEscalationResponse(esc)
	}
	return res
}

func toChatMessageResponse(m *entity.ChatMessage) *dto.ChatMessageResponse {
	return &dto.ChatMessageResponse{
		Id:            m.Id,
		ChatSessionId: m.ChatSessionId,
		SenderKind:    m.SenderKind,
		SenderId:      m.SenderId,
		Body:          m.Body,
		Seq:           m.Seq,
		CreatedAt:     m.CreatedAt,
	}
}

func toEscalationResponse(e *entity.Escalation) *dto.EscalationResponse {
	return &dto.EscalationResponse{
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
