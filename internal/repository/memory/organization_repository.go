package memory

import (
	"context"

	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type organizationRepository struct {
	u *unitOfWork
}

func (r *organizationRepository) Create(ctx context.Context, org *entity.Organization) error {
	defer r.u.lock()()

	if org.Id == uuid.Nil {
		org.Id = uuid.New()
	}
	r.u.store.state.orgs[org.Id] = *org
	return nil
}

func (r *organizationRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	defer r.u.lock()()

	o, ok := r.u.store.state.orgs[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

type staffRepository struct {
	u *unitOfWork
}

func (r *staffRepository) Create(ctx context.Context, staff *entity.StaffMember) error {
	defer r.u.lock()()

	if staff.Id == uuid.Nil {
		staff.Id = uuid.New()
	}
	r.u.store.state.staff[staff.Id] = *staff
	return nil
}

func (r *staffRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.StaffMember, error) {
	defer r.u.lock()()

	s, ok := r.u.store.state.staff[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (r *staffRepository) FindByUserAndOrganization(ctx context.Context, userId, orgId uuid.UUID) (*entity.StaffMember, error) {
	defer r.u.lock()()

	for _, s := range r.u.store.state.staff {
		if s.UserId == userId && s.OrganizationId == orgId {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

type patientRepository struct {
	u *unitOfWork
}

func (r *patientRepository) Create(ctx context.Context, patient *entity.Patient) error {
	defer r.u.lock()()

	if patient.Id == uuid.Nil {
		patient.Id = uuid.New()
	}
	r.u.store.state.patients[patient.Id] = *patient
	return nil
}

func (r *patientRepository) FindById(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	defer r.u.lock()()

	p, ok := r.u.store.state.patients[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *patientRepository) FindByUserAndOrganization(ctx context.Context, userId, orgId uuid.UUID) (*entity.Patient, error) {
	defer r.u.lock()()

	for _, p := range r.u.store.state.patients {
		if p.UserId != nil && *p.UserId == userId && p.OrganizationId == orgId {
			found := p
			return &found, nil
		}
	}
	return nil, nil
}
