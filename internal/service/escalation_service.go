package service

import (
	"context"
	"fmt"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/pkg/mailer"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/pkg/access"
	"clinic-chat-be/pkg/events"

	"github.com/google/uuid"
)

type IEscalationService interface {
	Escalate(ctx context.Context, caller access.Caller, sessionId uuid.UUID, req *dto.EscalateRequest) (*dto.EscalationResponse, error)
	AssignToSelf(ctx context.Context, caller access.Caller, escalationId uuid.UUID) (*dto.EscalationResponse, error)
	Resolve(ctx context.Context, caller access.Caller, escalationId uuid.UUID) (*dto.EscalationResponse, error)
	CloseSession(ctx context.Context, caller access.Caller, sessionId uuid.UUID) (*dto.ChatSessionResponse, error)
	Get(ctx context.Context, caller access.Caller, escalationId uuid.UUID) (*dto.EscalationResponse, error)
	List(ctx context.Context, caller access.Caller, req *dto.ListEscalationsRequest) ([]*dto.EscalationResponse, error)
	CountOutstanding(ctx context.Context, caller access.Caller) (*dto.EscalationCountResponse, error)
}

type escalationService struct {
	uowFactory    unitofwork.RepositoryFactory
	guard         *access.Guard
	notifications *NotificationService
	events        events.Publisher
	mailer        mailer.IEmailService
	dashboardURL  string
	logger        logger.ILogger
}

func NewEscalationService(
	uowFactory unitofwork.RepositoryFactory,
	guard *access.Guard,
	notifications *NotificationService,
	eventPublisher events.Publisher,
	mailService mailer.IEmailService,
	dashboardURL string,
	log logger.ILogger,
) IEscalationService {
	return &escalationService{
		uowFactory:    uowFactory,
		guard:         guard,
		notifications: notifications,
		events:        eventPublisher,
		mailer:        mailService,
		dashboardURL:  dashboardURL,
		logger:        log,
	}
}

func normalizePriority(p string) (string, error) {
	switch p {
	case "":
		return constant.EscalationPriorityMedium, nil
	case constant.EscalationPriorityLow, constant.EscalationPriorityMedium, constant.EscalationPriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority %q: %w", p, apperror.ErrInvalidInput)
}

// Escalate hands a session to human staff. Escalating an escalated session
// returns its current escalation.
func (s *escalationService) Escalate(ctx context.Context, caller access.Caller, sessionId uuid.UUID, req *dto.EscalateRequest) (*dto.EscalationResponse, error) {
	if req == nil {
		req = &dto.EscalateRequest{}
	}
	priority, err := normalizePriority(req.Priority)
	if err != nil {
		return nil, err
	}

	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := s.guard.SessionForStaff(ctx, uow, scope, sessionId)
	if err != nil {
		return nil, err
	}

	existing, err := s.escalateSession(ctx, uow, session)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := uow.Commit(); err != nil {
			return nil, err
		}
		return toEscalationResponse(existing), nil
	}

	esc := &entity.Escalation{
		Id:             uuid.New(),
		ChatSessionId:  session.Id,
		OrganizationId: session.OrganizationId,
		Priority:       priority,
		Status:         constant.EscalationStatusOpen,
		CreatedAt:      time.Now(),
	}
	if req.AssignToMe && scope.CanHandleAny() {
		staffId := scope.Staff.Id
		esc.AssignedStaffId = &staffId
		esc.Status = constant.EscalationStatusInProgress
	}
	if err := uow.EscalationRepository().Create(ctx, esc); err != nil {
		return nil, err
	}

	org, err := uow.OrganizationRepository().FindById(ctx, session.OrganizationId)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("ESCALATION", "Chat session escalated", map[string]interface{}{
		"escalation_id":   esc.Id,
		"chat_session_id": session.Id,
		"priority":        esc.Priority,
		"requested_by":    scope.Staff.Id,
	})

	session.Status = constant.SessionStatusEscalated
	s.notifications.PublishSessionStatus(ctx, session, esc)
	s.notifications.RefreshEscalationCounts(ctx, esc.OrganizationId, assignees(esc)...)
	s.events.PublishEscalationCreated(ctx, esc, scope.Staff.Id)
	if esc.AssignedStaffId == nil {
		s.sendAlert(org, esc)
	}

	return toEscalationResponse(esc), nil
}

// escalateSession moves an active session to escalated. It returns the
// current escalation when the session was already escalated.
func (s *escalationService) escalateSession(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.ChatSession) (*entity.Escalation, error) {
	switch session.Status {
	case constant.SessionStatusResolved:
		return nil, fmt.Errorf("chat session %s is resolved: %w", session.Id, apperror.ErrInvalidTransition)
	case constant.SessionStatusEscalated:
		return uow.EscalationRepository().FindActiveBySession(ctx, session.Id)
	}

	ok, err := uow.ChatSessionRepository().TransitionStatus(ctx, session.Id,
		[]string{constant.SessionStatusActive}, constant.SessionStatusEscalated)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	// Lost the race against another status change.
	current, err := uow.ChatSessionRepository().FindById(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	if current == nil || current.Status != constant.SessionStatusEscalated {
		return nil, fmt.Errorf("chat session %s changed status: %w", session.Id, apperror.ErrInvalidTransition)
	}
	existing, err := uow.EscalationRepository().FindActiveBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("chat session %s has no active escalation: %w", session.Id, apperror.ErrInvalidTransition)
	}
	return existing, nil
}

// AssignToSelf claims an unassigned escalation. The first claim wins and
// there is no reassignment.
func (s *escalationService) AssignToSelf(ctx context.Context, caller access.Caller, escalationId uuid.UUID) (*dto.EscalationResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	esc, err := s.guard.EscalationForStaff(ctx, uow, scope, escalationId)
	if err != nil {
		return nil, err
	}
	if esc.Status == constant.EscalationStatusResolved {
		return nil, fmt.Errorf("escalation %s is resolved: %w", esc.Id, apperror.ErrInvalidTransition)
	}

	won, err := uow.EscalationRepository().ClaimUnassigned(ctx, esc.Id, scope.Staff.Id)
	if err != nil {
		return nil, err
	}

	current, err := uow.EscalationRepository().FindById(ctx, esc.Id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("escalation %s: %w", esc.Id, apperror.ErrNotFound)
	}

	if !won {
		switch {
		case current.Status == constant.EscalationStatusResolved:
			return nil, fmt.Errorf("escalation %s is resolved: %w", esc.Id, apperror.ErrInvalidTransition)
		case current.IsAssignedTo(scope.Staff.Id):
			return toEscalationResponse(current), nil
		default:
			return nil, fmt.Errorf("escalation %s: %w", esc.Id, apperror.ErrAlreadyAssigned)
		}
	}

	s.logger.Info("ESCALATION", "Escalation claimed", map[string]interface{}{
		"escalation_id": current.Id,
		"staff_id":      scope.Staff.Id,
	})

	session, err := uow.ChatSessionRepository().FindById(ctx, current.ChatSessionId)
	if err == nil && session != nil {
		s.notifications.PublishSessionStatus(ctx, session, current)
	}
	s.notifications.RefreshEscalationCounts(ctx, current.OrganizationId, scope.Staff.Id)
	s.events.PublishEscalationAssigned(ctx, current)

	return toEscalationResponse(current), nil
}

// Resolve closes an escalation and its session in one transaction.
func (s *escalationService) Resolve(ctx context.Context, caller access.Caller, escalationId uuid.UUID) (*dto.EscalationResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	esc, err := s.guard.EscalationForStaff(ctx, uow, scope, escalationId)
	if err != nil {
		return nil, err
	}
	if esc.Status == constant.EscalationStatusResolved {
		return nil, fmt.Errorf("escalation %s is already resolved: %w", esc.Id, apperror.ErrInvalidTransition)
	}
	if err := s.guard.CanResolve(scope, esc); err != nil {
		return nil, err
	}

	resolved, session, err := s.resolveEscalation(ctx, uow, esc, scope.Staff.Id)
	if err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("ESCALATION", "Escalation resolved", map[string]interface{}{
		"escalation_id":   resolved.Id,
		"chat_session_id": resolved.ChatSessionId,
		"resolved_by":     scope.Staff.Id,
	})
	s.afterResolution(ctx, session, resolved, scope.Staff.Id, esc.AssignedStaffId)

	return toEscalationResponse(resolved), nil
}

// CloseSession resolves a session directly, together with its open escalation if any.
func (s *escalationService) CloseSession(ctx context.Context, caller access.Caller, sessionId uuid.UUID) (*dto.ChatSessionResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session, err := s.guard.SessionForStaff(ctx, uow, scope, sessionId)
	if err != nil {
		return nil, err
	}
	if session.Status == constant.SessionStatusResolved {
		return nil, fmt.Errorf("chat session %s is already resolved: %w", session.Id, apperror.ErrInvalidTransition)
	}

	esc, err := uow.EscalationRepository().FindActiveBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}

	var resolved *entity.Escalation
	var previousAssignee *uuid.UUID
	if esc != nil {
		if err := s.guard.CanResolve(scope, esc); err != nil {
			return nil, err
		}
		previousAssignee = esc.AssignedStaffId
		resolved, session, err = s.resolveEscalation(ctx, uow, esc, scope.Staff.Id)
		if err != nil {
			return nil, err
		}
	} else {
		session, err = s.resolveSession(ctx, uow, session.Id)
		if err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("CHAT", "Chat session closed", map[string]interface{}{
		"chat_session_id": session.Id,
		"closed_by":       scope.Staff.Id,
	})
	s.afterResolution(ctx, session, resolved, scope.Staff.Id, previousAssignee)

	return toChatSessionResponse(session, nil), nil
}

func (s *escalationService) resolveEscalation(ctx context.Context, uow unitofwork.UnitOfWork, esc *entity.Escalation, staffId uuid.UUID) (*entity.Escalation, *entity.ChatSession, error) {
	ok, err := uow.EscalationRepository().MarkResolved(ctx, esc.Id, staffId, time.Now())
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("escalation %s is already resolved: %w", esc.Id, apperror.ErrInvalidTransition)
	}

	session, err := s.resolveSession(ctx, uow, esc.ChatSessionId)
	if err != nil {
		return nil, nil, err
	}

	resolved, err := uow.EscalationRepository().FindById(ctx, esc.Id)
	if err != nil {
		return nil, nil, err
	}
	return resolved, session, nil
}

func (s *escalationService) resolveSession(ctx context.Context, uow unitofwork.UnitOfWork, sessionId uuid.UUID) (*entity.ChatSession, error) {
	ok, err := uow.ChatSessionRepository().TransitionStatus(ctx, sessionId,
		[]string{constant.SessionStatusActive, constant.SessionStatusEscalated}, constant.SessionStatusResolved)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("chat session %s is already resolved: %w", sessionId, apperror.ErrInvalidTransition)
	}

	session, err := uow.ChatSessionRepository().FindById(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session %s: %w", sessionId, apperror.ErrNotFound)
	}
	return session, nil
}

func (s *escalationService) afterResolution(ctx context.Context, session *entity.ChatSession, esc *entity.Escalation, resolvedBy uuid.UUID, previousAssignee *uuid.UUID) {
	s.notifications.PublishSessionStatus(ctx, session, esc)
	if esc != nil {
		affected := []uuid.UUID{resolvedBy}
		if previousAssignee != nil {
			affected = append(affected, *previousAssignee)
		}
		s.notifications.RefreshEscalationCounts(ctx, esc.OrganizationId, affected...)
		s.events.PublishEscalationResolved(ctx, esc)
	}
	s.events.PublishSessionResolved(ctx, session, resolvedBy)
}

func (s *escalationService) Get(ctx context.Context, caller access.Caller, escalationId uuid.UUID) (*dto.EscalationResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	esc, err := s.guard.EscalationForRead(ctx, s.uowFactory.NewUnitOfWork(ctx), scope, escalationId)
	if err != nil {
		return nil, err
	}
	return toEscalationResponse(esc), nil
}

// List returns escalations visible to the caller, highest priority first,
// then oldest first. Without a status filter only outstanding ones are listed.
func (s *escalationService) List(ctx context.Context, caller access.Caller, req *dto.ListEscalationsRequest) ([]*dto.EscalationResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	statuses := []string{constant.EscalationStatusOpen, constant.EscalationStatusInProgress}
	if req != nil && req.Status != "" {
		switch req.Status {
		case constant.EscalationStatusOpen, constant.EscalationStatusInProgress, constant.EscalationStatusResolved:
			statuses = []string{req.Status}
		default:
			return nil, fmt.Errorf("unknown status %q: %w", req.Status, apperror.ErrInvalidInput)
		}
	}

	filter, err := s.guard.EscalationFilter(scope, statuses)
	if err != nil {
		return nil, err
	}

	escalations, err := s.uowFactory.NewUnitOfWork(ctx).EscalationRepository().FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.EscalationResponse, 0, len(escalations))
	for _, e := range escalations {
		res = append(res, toEscalationResponse(e))
	}
	return res, nil
}

func (s *escalationService) CountOutstanding(ctx context.Context, caller access.Caller) (*dto.EscalationCountResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}
	if err := s.guard.RequireStaff(scope); err != nil {
		return nil, err
	}

	return s.notifications.Counts(ctx, scope.OrganizationId, scope.Staff)
}

func (s *escalationService) sendAlert(org *entity.Organization, esc *entity.Escalation) {
	if s.mailer == nil || org == nil || org.AlertEmail == "" {
		return
	}

	alert := mailer.EscalationAlert{
		OrganizationName: org.Name,
		ChatSessionId:    esc.ChatSessionId.String(),
		EscalationId:     esc.Id.String(),
		Priority:         esc.Priority,
	}
	if s.dashboardURL != "" {
		alert.DashboardURL = s.dashboardURL + "/escalations/" + esc.Id.String()
	}

	go func() {
		if err := s.mailer.SendEscalationAlert(org.AlertEmail, alert); err != nil {
			s.logger.Warn("ESCALATION", "Failed to send escalation alert", map[string]interface{}{
				"escalation_id": esc.Id,
				"error":         err.Error(),
			})
		}
	}()
}

func assignees(esc *entity.Escalation) []uuid.UUID {
	if esc.AssignedStaffId == nil {
		return nil
	}
	return []uuid.UUID{*esc.AssignedStaffId}
}
