package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Organization struct {
	Id         uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name       string            `gorm:"type:varchar(255);not null"`
	AlertEmail string            `gorm:"type:varchar(255)"`
	Settings   datatypes.JSONMap `gorm:"type:jsonb;default:'{}'"`
	CreatedAt  time.Time         `gorm:"autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"autoUpdateTime"`
}

func (Organization) TableName() string {
	return "organizations"
}

type StaffMember struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_staff_user_org,priority:1"`
	OrganizationId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_staff_user_org,priority:2"`
	FullName       string    `gorm:"type:varchar(255);not null"`
	Email          string    `gorm:"type:varchar(255)"`
	CanHandleAny   bool      `gorm:"default:false"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

func (StaffMember) TableName() string {
	return "staff_members"
}

type Patient struct {
	Id             uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrganizationId uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserId         *uuid.UUID `gorm:"type:uuid;index"`
	FullName       string     `gorm:"type:varchar(255);not null"`
	BirthDate      *time.Time `gorm:"type:date"`
	Gender         string     `gorm:"type:varchar(20)"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
}

func (Patient) TableName() string {
	return "patients"
}
