package mapper

import (
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/model"

	"gorm.io/datatypes"
)

type OrganizationMapper struct{}

func NewOrganizationMapper() *OrganizationMapper {
	return &OrganizationMapper{}
}

func (m *OrganizationMapper) OrganizationToEntity(o *model.Organization) *entity.Organization {
	if o == nil {
		return nil
	}

	enabled, _ := o.Settings[constant.OrgSettingAiResponderEnabled].(bool)

	return &entity.Organization{
		Id:                 o.Id,
		Name:               o.Name,
		AlertEmail:         o.AlertEmail,
		AiResponderEnabled: enabled,
	}
}

func (m *OrganizationMapper) OrganizationToModel(o *entity.Organization) *model.Organization {
	if o == nil {
		return nil
	}

	return &model.Organization{
		Id:         o.Id,
		Name:       o.Name,
		AlertEmail: o.AlertEmail,
		Settings: datatypes.JSONMap{
			constant.OrgSettingAiResponderEnabled: o.AiResponderEnabled,
		},
	}
}

func (m *OrganizationMapper) StaffToEntity(s *model.StaffMember) *entity.StaffMember {
	if s == nil {
		return nil
	}

	return &entity.StaffMember{
		Id:             s.Id,
		UserId:         s.UserId,
		OrganizationId: s.OrganizationId,
		FullName:       s.FullName,
		Email:          s.Email,
		CanHandleAny:   s.CanHandleAny,
	}
}

func (m *OrganizationMapper) StaffToModel(s *entity.StaffMember) *model.StaffMember {
	if s == nil {
		return nil
	}

	return &model.StaffMember{
		Id:             s.Id,
		UserId:         s.UserId,
		OrganizationId: s.OrganizationId,
		FullName:       s.FullName,
		Email:          s.Email,
		CanHandleAny:   s.CanHandleAny,
	}
}

func (m *OrganizationMapper) PatientToEntity(p *model.Patient) *entity.Patient {
	if p == nil {
		return nil
	}

	return &entity.Patient{
		Id:             p.Id,
		OrganizationId: p.OrganizationId,
		UserId:         p.UserId,
		FullName:       p.FullName,
		BirthDate:      p.BirthDate,
		Gender:         p.Gender,
	}
}

func (m *OrganizationMapper) PatientToModel(p *entity.Patient) *model.Patient {
	if p == nil {
		return nil
	}

	return &model.Patient{
		Id:             p.Id,
		OrganizationId: p.OrganizationId,
		UserId:         p.UserId,
		FullName:       p.FullName,
		BirthDate:      p.BirthDate,
		Gender:         p.Gender,
	}
}
