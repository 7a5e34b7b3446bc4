package memory

import (
	"context"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type chatSessionRepository struct {
	u *unitOfWork
}

func (r *chatSessionRepository) Create(ctx context.Context, session *entity.ChatSession) error {
	defer r.u.lock()()

	if session.Id == uuid.Nil {
		session.Id = uuid.New()
	}
	if session.Status == "" {
		session.Status = constant.SessionStatusActive
	}
	now := time.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = session.CreatedAt
	}
	r.u.store.state.sessions[session.Id] = *session
	return nil
}

func (r *chatSessionRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.ChatSession, error) {
	defer r.u.lock()()

	s, ok := r.u.store.state.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *chatSessionRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []string, to string) (bool, error) {
	defer r.u.lock()()

	s, ok := r.u.store.state.sessions[id]
	if !ok || !contains(from, s.Status) {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = time.Now()
	r.u.store.state.sessions[id] = s
	return true, nil
}

type chatMessageRepository struct {
	u *unitOfWork
}

func (r *chatMessageRepository) AppendNext(ctx context.Context, message *entity.ChatMessage) error {
	defer r.u.lock()()

	st := r.u.store.state
	session, ok := st.sessions[message.ChatSessionId]
	if !ok {
		return apperror.ErrNotFound
	}
	if session.Status == constant.SessionStatusResolved {
		return apperror.ErrSessionClosed
	}

	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.Seq = int64(len(st.messages[message.ChatSessionId])) + 1

	st.messages[message.ChatSessionId] = append(st.messages[message.ChatSessionId], *message)
	session.UpdatedAt = message.CreatedAt
	st.sessions[session.Id] = session
	return nil
}

func (r *chatMessageRepository) FindBySession(ctx context.Context, sessionId uuid.UUID, afterSeq int64) ([]*entity.ChatMessage, error) {
	defer r.u.lock()()

	all := r.u.store.state.messages[sessionId]
	out := make([]*entity.ChatMessage, 0, len(all))
	for i := range all {
		if all[i].Seq > afterSeq {
			m := all[i]
			out = append(out, &m)
		}
	}
	return out, nil
}

func (r *chatMessageRepository) FindLatest(ctx context.Context, sessionId uuid.UUID, limit int) ([]*entity.ChatMessage, error) {
	defer r.u.lock()()

	all := r.u.store.state.messages[sessionId]
	start := 0
	if limit > 0 && len(all) > limit {
		start = len(all) - limit
	}
	out := make([]*entity.ChatMessage, 0, len(all)-start)
	for i := start; i < len(all); i++ {
		m := all[i]
		out = append(out, &m)
	}
	return out, nil
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
