package entity

import "github.com/google/uuid"

// StaffMember is the membership record of a clinic user inside one organization.
type StaffMember struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	OrganizationId uuid.UUID
	FullName       string
	Email          string
	CanHandleAny   bool
}
