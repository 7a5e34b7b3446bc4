package access

import (
	"context"
	"fmt"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Caller is the identity attached to a request by the JWT middleware.
type Caller struct {
	UserId         uuid.UUID
	OrganizationId uuid.UUID
	Role           string
}

// Scope is a resolved caller: exactly one of Staff or Patient is set.
type Scope struct {
	Caller
	Staff   *entity.StaffMember
	Patient *entity.Patient
}

func (s *Scope) IsStaff() bool {
	return s.Staff != nil
}

func (s *Scope) CanHandleAny() bool {
	return s.Staff != nil && s.Staff.CanHandleAny
}

// Guard filters every read and write by organization, role and ownership.
type Guard struct {
	uowFactory unitofwork.RepositoryFactory
	scopes     *cache.Cache
}

func NewGuard(uowFactory unitofwork.RepositoryFactory, ttl time.Duration) *Guard {
	return &Guard{
		uowFactory: uowFactory,
		scopes:     cache.New(ttl, 2*ttl),
	}
}

func scopeKey(c Caller) string {
	return c.Role + ":" + c.OrganizationId.String() + ":" + c.UserId.String()
}

// Resolve maps a caller to its membership inside the caller's organization.
func (g *Guard) Resolve(ctx context.Context, caller Caller) (*Scope, error) {
	if caller.UserId == uuid.Nil || caller.OrganizationId == uuid.Nil {
		return nil, fmt.Errorf("caller has no identity: %w", apperror.ErrForbidden)
	}

	key := scopeKey(caller)
	if cached, found := g.scopes.Get(key); found {
		return cached.(*Scope), nil
	}

	uow := g.uowFactory.NewUnitOfWork(ctx)
	scope := &Scope{Caller: caller}

	switch caller.Role {
	case constant.RoleStaff:
		staff, err := uow.StaffRepository().FindByUserAndOrganization(ctx, caller.UserId, caller.OrganizationId)
		if err != nil {
			return nil, err
		}
		if staff == nil {
			return nil, fmt.Errorf("no staff membership in organization: %w", apperror.ErrForbidden)
		}
		scope.Staff = staff
	case constant.RolePatient:
		patient, err := uow.PatientRepository().FindByUserAndOrganization(ctx, caller.UserId, caller.OrganizationId)
		if err != nil {
			return nil, err
		}
		if patient == nil {
			return nil, fmt.Errorf("no patient record in organization: %w", apperror.ErrForbidden)
		}
		scope.Patient = patient
	default:
		return nil, fmt.Errorf("unknown role %q: %w", caller.Role, apperror.ErrForbidden)
	}

	g.scopes.SetDefault(key, scope)
	return scope, nil
}

// Invalidate drops a cached scope, e.g. after a membership change.
func (g *Guard) Invalidate(caller Caller) {
	g.scopes.Delete(scopeKey(caller))
}

func (g *Guard) RequireStaff(scope *Scope) error {
	if !scope.IsStaff() {
		return fmt.Errorf("staff only: %w", apperror.ErrForbidden)
	}
	return nil
}

func (g *Guard) loadSession(ctx context.Context, uow unitofwork.UnitOfWork, scope *Scope, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindById(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("chat session %s: %w", sessionId, apperror.ErrNotFound)
	}
	if session.OrganizationId != scope.OrganizationId {
		return nil, fmt.Errorf("chat session %s belongs to another organization: %w", sessionId, apperror.ErrForbidden)
	}
	return session, nil
}

// SessionForRead allows staff of the session's organization and the session's own patient.
// The same rule applies to appends: the sender kind follows the caller's role.
func (g *Guard) SessionForRead(ctx context.Context, uow unitofwork.UnitOfWork, scope *Scope, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := g.loadSession(ctx, uow, scope, sessionId)
	if err != nil {
		return nil, err
	}
	if scope.IsStaff() {
		return session, nil
	}
	if scope.Patient == nil || session.SubjectId != scope.Patient.Id {
		return nil, fmt.Errorf("chat session %s: %w", sessionId, apperror.ErrForbidden)
	}
	return session, nil
}

// SessionForStaff loads a session for a staff-only mutation.
func (g *Guard) SessionForStaff(ctx context.Context, uow unitofwork.UnitOfWork, scope *Scope, sessionId uuid.UUID) (*entity.ChatSession, error) {
	if err := g.RequireStaff(scope); err != nil {
		return nil, err
	}
	return g.loadSession(ctx, uow, scope, sessionId)
}

// EscalationForStaff loads an escalation of the caller's organization without visibility checks.
func (g *Guard) EscalationForStaff(ctx context.Context, uow unitofwork.UnitOfWork, scope *Scope, escalationId uuid.UUID) (*entity.Escalation, error) {
	if err := g.RequireStaff(scope); err != nil {
		return nil, err
	}
	esc, err := uow.EscalationRepository().FindById(ctx, escalationId)
	if err != nil {
		return nil, err
	}
	if esc == nil {
		return nil, fmt.Errorf("escalation %s: %w", escalationId, apperror.ErrNotFound)
	}
	if esc.OrganizationId != scope.OrganizationId {
		return nil, fmt.Errorf("escalation %s belongs to another organization: %w", escalationId, apperror.ErrForbidden)
	}
	return esc, nil
}

// EscalationForRead additionally hides escalations held by others from staff
// who cannot handle any escalation.
func (g *Guard) EscalationForRead(ctx context.Context, uow unitofwork.UnitOfWork, scope *Scope, escalationId uuid.UUID) (*entity.Escalation, error) {
	esc, err := g.EscalationForStaff(ctx, uow, scope, escalationId)
	if err != nil {
		return nil, err
	}
	if !scope.CanHandleAny() && !esc.IsAssignedTo(scope.Staff.Id) {
		return nil, fmt.Errorf("escalation %s is assigned elsewhere: %w", escalationId, apperror.ErrForbidden)
	}
	return esc, nil
}

// CanResolve allows handle-any staff and the assignee.
func (g *Guard) CanResolve(scope *Scope, esc *entity.Escalation) error {
	if scope.CanHandleAny() || (scope.IsStaff() && esc.IsAssignedTo(scope.Staff.Id)) {
		return nil
	}
	return fmt.Errorf("only the assignee can resolve escalation %s: %w", esc.Id, apperror.ErrForbidden)
}

// EscalationFilter scopes a listing to what the caller may see.
func (g *Guard) EscalationFilter(scope *Scope, statuses []string) (entity.EscalationFilter, error) {
	if err := g.RequireStaff(scope); err != nil {
		return entity.EscalationFilter{}, err
	}
	filter := entity.EscalationFilter{
		OrganizationId: scope.OrganizationId,
		Statuses:       statuses,
	}
	if !scope.CanHandleAny() {
		staffId := scope.Staff.Id
		filter.AssignedStaffId = &staffId
	}
	return filter, nil
}
