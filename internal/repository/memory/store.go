package memory

import (
	"context"
	"fmt"
	"sync"

	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/repository/contract"
	"clinic-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Store is a process-local implementation of the repository contracts.
// A transaction holds the store lock from Begin until Commit or Rollback, which
// gives the same all-or-nothing behaviour as the Postgres implementation.
type Store struct {
	mu    sync.Mutex
	state *state
}

type state struct {
	sessions    map[uuid.UUID]entity.ChatSession
	messages    map[uuid.UUID][]entity.ChatMessage
	escalations map[uuid.UUID]entity.Escalation
	orgs        map[uuid.UUID]entity.Organization
	staff       map[uuid.UUID]entity.StaffMember
	patients    map[uuid.UUID]entity.Patient
}

func newState() *state {
	return &state{
		sessions:    make(map[uuid.UUID]entity.ChatSession),
		messages:    make(map[uuid.UUID][]entity.ChatMessage),
		escalations: make(map[uuid.UUID]entity.Escalation),
		orgs:        make(map[uuid.UUID]entity.Organization),
		staff:       make(map[uuid.UUID]entity.StaffMember),
		patients:    make(map[uuid.UUID]entity.Patient),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.sessions {
		c.sessions[k] = v
	}
	for k, v := range s.messages {
		c.messages[k] = append([]entity.ChatMessage(nil), v...)
	}
	for k, v := range s.escalations {
		c.escalations[k] = v
	}
	for k, v := range s.orgs {
		c.orgs[k] = v
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.patients {
		c.patients[k] = v
	}
	return c
}

func NewStore() *Store {
	return &Store{state: newState()}
}

// NewUnitOfWork satisfies unitofwork.RepositoryFactory.
func (s *Store) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

var _ unitofwork.RepositoryFactory = (*Store)(nil)

type unitOfWork struct {
	store    *Store
	snapshot *state
	inTx     bool
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.inTx {
		return fmt.Errorf("transaction already started")
	}
	u.store.mu.Lock()
	u.snapshot = u.store.state.clone()
	u.inTx = true
	return nil
}

func (u *unitOfWork) Commit() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to commit")
	}
	u.inTx = false
	u.snapshot = nil
	u.store.mu.Unlock()
	return nil
}

func (u *unitOfWork) Rollback() error {
	if !u.inTx {
		return fmt.Errorf("no transaction to rollback")
	}
	u.store.state = u.snapshot
	u.inTx = false
	u.snapshot = nil
	u.store.mu.Unlock()
	return nil
}

// lock takes the store lock for a single statement unless a transaction already holds it.
func (u *unitOfWork) lock() func() {
	if u.inTx {
		return func() {}
	}
	u.store.mu.Lock()
	return u.store.mu.Unlock
}

func (u *unitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return &chatSessionRepository{u: u}
}

func (u *unitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &chatMessageRepository{u: u}
}

func (u *unitOfWork) EscalationRepository() contract.EscalationRepository {
	return &escalationRepository{u: u}
}

func (u *unitOfWork) OrganizationRepository() contract.OrganizationRepository {
	return &organizationRepository{u: u}
}

func (u *unitOfWork) StaffRepository() contract.StaffRepository {
	return &staffRepository{u: u}
}

func (u *unitOfWork) PatientRepository() contract.PatientRepository {
	return &patientRepository{u: u}
}
