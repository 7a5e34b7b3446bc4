package contract

import (
	"context"

	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *entity.Organization) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Organization, error)
}

type StaffRepository interface {
	Create(ctx context.Context, staff *entity.StaffMember) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.StaffMember, error)
	FindByUserAndOrganization(ctx context.Context, userId, orgId uuid.UUID) (*entity.StaffMember, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *entity.Patient) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.Patient, error)
	FindByUserAndOrganization(ctx context.Context, userId, orgId uuid.UUID) (*entity.Patient, error)
}
