package service

import (
	"context"
	"fmt"

	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Realtime event types pushed to viewers.
const (
	EventMessageCreated    = "message.created"
	EventSessionStatus     = "session.status"
	EventEscalationUpdated = "escalation.updated"
	EventEscalationCount   = "escalations.count"
)

func SessionTopic(sessionId uuid.UUID) string {
	return "session:" + sessionId.String()
}

// OrgEscalationsTopic is watched by staff who can handle any escalation.
func OrgEscalationsTopic(orgId uuid.UUID) string {
	return fmt.Sprintf("escalations:%s:any", orgId)
}

func StaffEscalationsTopic(orgId, staffId uuid.UUID) string {
	return fmt.Sprintf("escalations:%s:staff:%s", orgId, staffId)
}

// NotificationDelivery defines how to push real-time updates.
// Implemented by the WebSocket Hub.
type NotificationDelivery interface {
	Publish(ctx context.Context, topic, eventType string, data interface{})
}

type NotificationService struct {
	uowFactory unitofwork.RepositoryFactory
	delivery   NotificationDelivery
	logger     logger.ILogger
}

func NewNotificationService(uowFactory unitofwork.RepositoryFactory, delivery NotificationDelivery, log logger.ILogger) *NotificationService {
	return &NotificationService{
		uowFactory: uowFactory,
		delivery:   delivery,
		logger:     log,
	}
}

func (s *NotificationService) PublishMessage(ctx context.Context, msg *entity.ChatMessage) {
	s.delivery.Publish(ctx, SessionTopic(msg.ChatSessionId), EventMessageCreated, toChatMessageResponse(msg))
}

// PublishSessionStatus tells session viewers about a status change and staff
// watchers about the escalation behind it.
func (s *NotificationService) PublishSessionStatus(ctx context.Context, session *entity.ChatSession, esc *entity.Escalation) {
	payload := dto.SessionStatusEvent{
		ChatSessionId: session.Id,
		Status:        session.Status,
	}
	if esc != nil {
		payload.Escalation = toEscalationResponse(esc)
	}
	s.delivery.Publish(ctx, SessionTopic(session.Id), EventSessionStatus, payload)

	if esc == nil {
		return
	}
	s.delivery.Publish(ctx, OrgEscalationsTopic(esc.OrganizationId), EventEscalationUpdated, payload.Escalation)
	if esc.AssignedStaffId != nil {
		s.delivery.Publish(ctx, StaffEscalationsTopic(esc.OrganizationId, *esc.AssignedStaffId), EventEscalationUpdated, payload.Escalation)
	}
}

// Counts returns the counts a viewer may see. With no staff member it is the
// organization view. Staff get their own in_progress total, plus the
// organization total only when they can handle any escalation.
func (s *NotificationService) Counts(ctx context.Context, orgId uuid.UUID, staff *entity.StaffMember) (*dto.EscalationCountResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	res := &dto.EscalationCountResponse{}
	if staff == nil || staff.CanHandleAny {
		outstanding, err := uow.EscalationRepository().Count(ctx, entity.EscalationFilter{
			OrganizationId: orgId,
			Statuses:       []string{constant.EscalationStatusOpen, constant.EscalationStatusInProgress},
		})
		if err != nil {
			return nil, err
		}
		res.Outstanding = outstanding
	}

	if staff != nil {
		staffId := staff.Id
		assigned, err := uow.EscalationRepository().Count(ctx, entity.EscalationFilter{
			OrganizationId:  orgId,
			AssignedStaffId: &staffId,
			Statuses:        []string{constant.EscalationStatusInProgress},
		})
		if err != nil {
			return nil, err
		}
		res.AssignedInProgress = assigned
	}
	return res, nil
}

// RefreshEscalationCounts recomputes counts after a lifecycle change and
// pushes them to the org topic and to each affected staff topic.
func (s *NotificationService) RefreshEscalationCounts(ctx context.Context, orgId uuid.UUID, staffIds ...uuid.UUID) {
	orgCounts, err := s.Counts(ctx, orgId, nil)
	if err != nil {
		s.logger.Error("NOTIFICATION", "Failed to count escalations", map[string]interface{}{"organization_id": orgId, "error": err.Error()})
		return
	}
	s.delivery.Publish(ctx, OrgEscalationsTopic(orgId), EventEscalationCount, orgCounts)

	seen := make(map[uuid.UUID]bool, len(staffIds))
	for _, staffId := range staffIds {
		if staffId == uuid.Nil || seen[staffId] {
			continue
		}
		seen[staffId] = true

		staff, err := s.uowFactory.NewUnitOfWork(ctx).StaffRepository().FindById(ctx, staffId)
		if err != nil {
			s.logger.Error("NOTIFICATION", "Failed to load staff member", map[string]interface{}{"staff_id": staffId, "error": err.Error()})
			continue
		}
		if staff == nil {
			continue
		}
		counts, err := s.Counts(ctx, orgId, staff)
		if err != nil {
			s.logger.Error("NOTIFICATION", "Failed to count staff escalations", map[string]interface{}{"staff_id": staffId, "error": err.Error()})
			continue
		}
		s.delivery.Publish(ctx, StaffEscalationsTopic(orgId, staffId), EventEscalationCount, counts)
	}
}
