package implementation

import (
	"context"
	"errors"

	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/mapper"
	"clinic-chat-be/internal/model"
	"clinic-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrganizationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.OrganizationMapper
}

func NewOrganizationRepository(db *gorm.DB) contract.OrganizationRepository {
	return &OrganizationRepositoryImpl{db: db, mapper: mapper.NewOrganizationMapper()}
}

func (r *OrganizationRepositoryImpl) Create(ctx context.Context, org *entity.Organization) error {
	m := r.mapper.OrganizationToModel(org)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*org = *r.mapper.OrganizationToEntity(m)
	return nil
}

func (r *OrganizationRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Organization, error) {
	var m model.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.OrganizationToEntity(&m), nil
}

type StaffRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.OrganizationMapper
}

func NewStaffRepository(db *gorm.DB) contract.StaffRepository {
	return &StaffRepositoryImpl{db: db, mapper: mapper.NewOrganizationMapper()}
}

func (r *StaffRepositoryImpl) Create(ctx context.Context, staff *entity.StaffMember) error {
	m := r.mapper.StaffToModel(staff)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*staff = *r.mapper.StaffToEntity(m)
	return nil
}

func (r *StaffRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.StaffMember, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *StaffRepositoryImpl) FindByUserAndOrganization(ctx context.Context, userId, orgId uuid.UUID) (*entity.StaffMember, error) {
	return r.findOne(r.db.WithContext(ctx).Where("user_id = ? AND organization_id = ?", userId, orgId))
}

func (r *StaffRepositoryImpl) findOne(query *gorm.DB) (*entity.StaffMember, error) {
	var m model.StaffMember
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.StaffToEntity(&m), nil
}

type PatientRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.OrganizationMapper
}

func NewPatientRepository(db *gorm.DB) contract.PatientRepository {
	return &PatientRepositoryImpl{db: db, mapper: mapper.NewOrganizationMapper()}
}

func (r *PatientRepositoryImpl) Create(ctx context.Context, patient *entity.Patient) error {
	m := r.mapper.PatientToModel(patient)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*patient = *r.mapper.PatientToEntity(m)
	return nil
}

func (r *PatientRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.Patient, error) {
	return r.findOne(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *PatientRepositoryImpl) FindByUserAndOrganization(ctx context.Context, userId, orgId uuid.UUID) (*entity.Patient, error) {
	return r.findOne(r.db.WithContext(ctx).Where("user_id = ? AND organization_id = ?", userId, orgId))
}

func (r *PatientRepositoryImpl) findOne(query *gorm.DB) (*entity.Patient, error) {
	var m model.Patient
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.PatientToEntity(&m), nil
}
