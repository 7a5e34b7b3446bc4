package seed

import (
	"context"
	"time"

	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// Clinic is a small demo organization used by the seed and simulation CLIs and tests.
type Clinic struct {
	Organization *entity.Organization
	// Nurse and Doctor can handle any escalation; Receptionist only their own.
	Nurse        *entity.StaffMember
	Doctor       *entity.StaffMember
	Receptionist *entity.StaffMember
	Patient      *entity.Patient
}

func DemoClinic(ctx context.Context, factory unitofwork.RepositoryFactory, aiResponderEnabled bool) (*Clinic, error) {
	uow := factory.NewUnitOfWork(ctx)

	org := &entity.Organization{
		Name:               "Sunrise Family Clinic",
		AlertEmail:         "desk@sunrise.example",
		AiResponderEnabled: aiResponderEnabled,
	}
	if err := uow.OrganizationRepository().Create(ctx, org); err != nil {
		return nil, err
	}

	newStaff := func(name, email string, any bool) (*entity.StaffMember, error) {
		s := &entity.StaffMember{
			UserId:         uuid.New(),
			OrganizationId: org.Id,
			FullName:       name,
			Email:          email,
			CanHandleAny:   any,
		}
		return s, uow.StaffRepository().Create(ctx, s)
	}

	nurse, err := newStaff("Nia Okafor", "nia@sunrise.example", true)
	if err != nil {
		return nil, err
	}
	doctor, err := newStaff("Dr. Tomas Lind", "tomas@sunrise.example", true)
	if err != nil {
		return nil, err
	}
	receptionist, err := newStaff("Ravi Patel", "ravi@sunrise.example", false)
	if err != nil {
		return nil, err
	}

	userId := uuid.New()
	birth := time.Date(1988, time.March, 14, 0, 0, 0, 0, time.UTC)
	patient := &entity.Patient{
		OrganizationId: org.Id,
		UserId:         &userId,
		FullName:       "Maya Chen",
		BirthDate:      &birth,
		Gender:         "female",
	}
	if err := uow.PatientRepository().Create(ctx, patient); err != nil {
		return nil, err
	}

	return &Clinic{
		Organization: org,
		Nurse:        nurse,
		Doctor:       doctor,
		Receptionist: receptionist,
		Patient:      patient,
	}, nil
}
