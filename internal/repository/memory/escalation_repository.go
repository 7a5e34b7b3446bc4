package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type escalationRepository struct {
	u *unitOfWork
}

func (r *escalationRepository) Create(ctx context.Context, escalation *entity.Escalation) error {
	defer r.u.lock()()

	if escalation.Status != constant.EscalationStatusResolved {
		for _, e := range r.u.store.state.escalations {
			if e.ChatSessionId == escalation.ChatSessionId && e.Status != constant.EscalationStatusResolved {
				return fmt.Errorf("chat session %s already has an active escalation: %w", escalation.ChatSessionId, apperror.ErrInvalidTransition)
			}
		}
	}
	if escalation.Id == uuid.Nil {
		escalation.Id = uuid.New()
	}
	if escalation.CreatedAt.IsZero() {
		escalation.CreatedAt = time.Now()
	}
	r.u.store.state.escalations[escalation.Id] = *escalation
	return nil
}

func (r *escalationRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Escalation, error) {
	defer r.u.lock()()

	e, ok := r.u.store.state.escalations[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (r *escalationRepository) FindActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Escalation, error) {
	defer r.u.lock()()

	for _, e := range r.u.store.state.escalations {
		if e.ChatSessionId == sessionId && e.Status != constant.EscalationStatusResolved {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (r *escalationRepository) FindAll(ctx context.Context, filter entity.EscalationFilter) ([]*entity.Escalation, error) {
	defer r.u.lock()()

	out := make([]*entity.Escalation, 0)
	for _, e := range r.u.store.state.escalations {
		if matches(e, filter) {
			found := e
			out = append(out, &found)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := constant.PriorityRank(out[i].Priority), constant.PriorityRank(out[j].Priority)
		if pi != pj {
			return pi > pj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *escalationRepository) Count(ctx context.Context, filter entity.EscalationFilter) (int64, error) {
	defer r.u.lock()()

	var n int64
	for _, e := range r.u.store.state.escalations {
		if matches(e, filter) {
			n++
		}
	}
	return n, nil
}

func (r *escalationRepository) ClaimUnassigned(ctx context.Context, id uuid.UUID, staffId uuid.UUID) (bool, error) {
	defer r.u.lock()()

	e, ok := r.u.store.state.escalations[id]
	if !ok || e.AssignedStaffId != nil || e.Status != constant.EscalationStatusOpen {
		return false, nil
	}
	assignee := staffId
	e.AssignedStaffId = &assignee
	e.Status = constant.EscalationStatusInProgress
	r.u.store.state.escalations[id] = e
	return true, nil
}

func (r *escalationRepository) MarkResolved(ctx context.Context, id uuid.UUID, staffId uuid.UUID, at time.Time) (bool, error) {
	defer r.u.lock()()

	e, ok := r.u.store.state.escalations[id]
	if !ok || e.Status == constant.EscalationStatusResolved {
		return false, nil
	}
	resolvedAt, resolvedBy := at, staffId
	e.Status = constant.EscalationStatusResolved
	e.ResolvedAt = &resolvedAt
	e.ResolvedBy = &resolvedBy
	r.u.store.state.escalations[id] = e
	return true, nil
}

func matches(e entity.Escalation, f entity.EscalationFilter) bool {
	if e.OrganizationId != f.OrganizationId {
		return false
	}
	if f.ChatSessionId != nil && e.ChatSessionId != *f.ChatSessionId {
		return false
	}
	if f.AssignedStaffId != nil && !e.IsAssignedTo(*f.AssignedStaffId) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, e.Status) {
		return false
	}
	return true
}
