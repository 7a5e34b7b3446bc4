package conversation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/pkg/llm"

	"github.com/google/uuid"
)

const staffPrefix = "[Clinic staff] "

// Window is everything the responder needs to answer one session.
type Window struct {
	Session      *entity.ChatSession
	Organization *entity.Organization
	Patient      *entity.Patient
	History      []*entity.ChatMessage
}

// Loader reads a bounded, seq-ordered slice of a session's history.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
	limit      int
}

func NewLoader(uowFactory unitofwork.RepositoryFactory, limit int) *Loader {
	if limit <= 0 {
		limit = 20
	}
	return &Loader{
		uowFactory: uowFactory,
		limit:      limit,
	}
}

func (l *Loader) Load(ctx context.Context, sessionId uuid.UUID) (*Window, error) {
	uow := l.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.ChatSessionRepository().FindById(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session %s: %w", sessionId, apperror.ErrNotFound)
	}

	org, err := uow.OrganizationRepository().FindById(ctx, session.OrganizationId)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, fmt.Errorf("organization %s: %w", session.OrganizationId, apperror.ErrNotFound)
	}

	// Patient metadata is optional context; a missing record still gets a reply.
	patient, err := uow.PatientRepository().FindById(ctx, session.SubjectId)
	if err != nil {
		return nil, err
	}

	history, err := uow.ChatMessageRepository().FindLatest(ctx, sessionId, l.limit)
	if err != nil {
		return nil, err
	}

	return &Window{
		Session:      session,
		Organization: org,
		Patient:      patient,
		History:      history,
	}, nil
}

// BuildMessages renders the window as an LLM conversation: one system prompt,
// then history in seq order. Staff turns are tagged so the model defers to them.
func BuildMessages(w *Window, now time.Time) []llm.Message {
	name, age, gender := "Unknown", "Unknown", "Unknown"
	if w.Patient != nil {
		if w.Patient.FullName != "" {
			name = w.Patient.FullName
		}
		if a := w.Patient.AgeAt(now); a >= 0 {
			age = strconv.Itoa(a)
		}
		if w.Patient.Gender != "" {
			gender = w.Patient.Gender
		}
	}

	messages := make([]llm.Message, 0, len(w.History)+1)
	messages = append(messages, llm.Message{
		Role:    constant.LLMRoleSystem,
		Content: fmt.Sprintf(constant.ResponderSystemPromptV1, w.Organization.Name, name, age, gender),
	})

	for _, m := range w.History {
		switch m.SenderKind {
		case constant.SenderKindPatient:
			messages = append(messages, llm.Message{Role: constant.LLMRoleUser, Content: m.Body})
		case constant.SenderKindBot:
			messages = append(messages, llm.Message{Role: constant.LLMRoleAssistant, Content: m.Body})
		case constant.SenderKindStaff:
			messages = append(messages, llm.Message{Role: constant.LLMRoleAssistant, Content: staffPrefix + m.Body})
		}
	}
	return messages
}
