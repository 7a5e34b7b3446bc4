package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/pkg/access"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IMessageService interface {
	OpenSession(ctx context.Context, caller access.Caller, req *dto.OpenSessionRequest) (*dto.ChatSessionResponse, error)
	GetSession(ctx context.Context, caller access.Caller, sessionId uuid.UUID) (*dto.ChatSessionResponse, error)
	GetHistory(ctx context.Context, caller access.Caller, sessionId uuid.UUID, afterSeq int64) ([]*dto.ChatMessageResponse, error)
	Append(ctx context.Context, caller access.Caller, sessionId uuid.UUID, req *dto.AppendMessageRequest) (*dto.ChatMessageResponse, error)
	AppendBotMessage(ctx context.Context, sessionId uuid.UUID, body string) (*entity.ChatMessage, error)
}

type messageService struct {
	uowFactory    unitofwork.RepositoryFactory
	guard         *access.Guard
	notifications *NotificationService
	bus           message.Publisher
	logger        logger.ILogger
}

func NewMessageService(
	uowFactory unitofwork.RepositoryFactory,
	guard *access.Guard,
	notifications *NotificationService,
	bus message.Publisher,
	log logger.ILogger,
) IMessageService {
	return &messageService{
		uowFactory:    uowFactory,
		guard:         guard,
		notifications: notifications,
		bus:           bus,
		logger:        log,
	}
}

func (s *messageService) OpenSession(ctx context.Context, caller access.Caller, req *dto.OpenSessionRequest) (*dto.ChatSessionResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	var subjectId uuid.UUID
	if scope.IsStaff() {
		if req == nil || req.SubjectId == nil {
			return nil, fmt.Errorf("subject_id is required: %w", apperror.ErrInvalidInput)
		}
		patient, err := uow.PatientRepository().FindById(ctx, *req.SubjectId)
		if err != nil {
			return nil, err
		}
		if patient == nil {
			return nil, fmt.Errorf("patient %s: %w", *req.SubjectId, apperror.ErrNotFound)
		}
		if patient.OrganizationId != scope.OrganizationId {
			return nil, fmt.Errorf("patient %s belongs to another organization: %w", patient.Id, apperror.ErrForbidden)
		}
		subjectId = patient.Id
	} else {
		subjectId = scope.Patient.Id
	}

	session := &entity.ChatSession{
		Id:             uuid.New(),
		OrganizationId: scope.OrganizationId,
		SubjectId:      subjectId,
		Status:         constant.SessionStatusActive,
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	s.logger.Info("CHAT", "Chat session opened", map[string]interface{}{
		"chat_session_id": session.Id,
		"organization_id": session.OrganizationId,
		"opened_by":       caller.Role,
	})

	return toChatSessionResponse(session, nil), nil
}

func (s *messageService) GetSession(ctx context.Context, caller access.Caller, sessionId uuid.UUID) (*dto.ChatSessionResponse, error) {
	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.guard.SessionForRead(ctx, uow, scope, sessionId)
	if err != nil {
		return nil, err
	}

	esc, err := uow.EscalationRepository().FindActiveBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	return toChatSessionResponse(session, esc), nil
}

func (s *messageService) GetHistory(ctx context.Context, caller access.Caller, sessionId uuid.UUID, afterSeq int64) ([]*dto.ChatMessageResponse, error) {
	if afterSeq < 0 {
		return nil, fmt.Errorf("after_seq must not be negative: %w", apperror.ErrInvalidInput)
	}

	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := s.guard.SessionForRead(ctx, uow, scope, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindBySession(ctx, sessionId, afterSeq)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ChatMessageResponse, 0, len(messages))
	for _, m := range messages {
		res = append(res, toChatMessageResponse(m))
	}
	return res, nil
}

// Append stores a patient or staff message. The sender kind follows the caller's role.
func (s *messageService) Append(ctx context.Context, caller access.Caller, sessionId uuid.UUID, req *dto.AppendMessageRequest) (*dto.ChatMessageResponse, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fmt.Errorf("message body is empty: %w", apperror.ErrInvalidInput)
	}

	scope, err := s.guard.Resolve(ctx, caller)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := s.guard.SessionForRead(ctx, uow, scope, sessionId)
	if err != nil {
		return nil, err
	}

	var kind string
	var senderId uuid.UUID
	if scope.IsStaff() {
		kind, senderId = constant.SenderKindStaff, scope.Staff.Id
	} else {
		kind, senderId = constant.SenderKindPatient, scope.Patient.Id
	}

	msg, err := s.appendMessage(ctx, session, kind, &senderId, body)
	if err != nil {
		return nil, err
	}
	return toChatMessageResponse(msg), nil
}

// AppendBotMessage is the responder's write path. It skips caller checks.
func (s *messageService) AppendBotMessage(ctx context.Context, sessionId uuid.UUID, body string) (*entity.ChatMessage, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	session, err := uow.ChatSessionRepository().FindById(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session %s: %w", sessionId, apperror.ErrNotFound)
	}
	return s.appendMessage(ctx, session, constant.SenderKindBot, nil, body)
}

func (s *messageService) appendMessage(ctx context.Context, session *entity.ChatSession, kind string, senderId *uuid.UUID, body string) (*entity.ChatMessage, error) {
	if session.Status == constant.SessionStatusResolved {
		return nil, fmt.Errorf("chat session %s: %w", session.Id, apperror.ErrSessionClosed)
	}

	msg := &entity.ChatMessage{
		ChatSessionId: session.Id,
		SenderKind:    kind,
		SenderId:      senderId,
		Body:          body,
	}

	// The repository re-checks the status under the session lock.
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.ChatMessageRepository().AppendNext(ctx, msg); err != nil {
		return nil, fmt.Errorf("append to chat session %s: %w", session.Id, err)
	}

	s.notifications.PublishMessage(ctx, msg)
	s.announce(session, msg)

	return msg, nil
}

// announce hands the stored message to in-process consumers. Failures never
// reach the caller: the message is already committed.
func (s *messageService) announce(session *entity.ChatSession, msg *entity.ChatMessage) {
	if s.bus == nil {
		return
	}

	payload, err := json.Marshal(dto.MessageAppendedEvent{
		MessageId:      msg.Id,
		ChatSessionId:  msg.ChatSessionId,
		OrganizationId: session.OrganizationId,
		SenderKind:     msg.SenderKind,
		Seq:            msg.Seq,
	})
	if err != nil {
		s.logger.Error("CHAT", "Failed to marshal message event", map[string]interface{}{"error": err.Error()})
		return
	}

	if err := s.bus.Publish(constant.TopicMessageAppended, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Error("CHAT", "Failed to publish message event", map[string]interface{}{
			"chat_session_id": msg.ChatSessionId,
			"seq":             msg.Seq,
			"error":           err.Error(),
		})
	}
}
