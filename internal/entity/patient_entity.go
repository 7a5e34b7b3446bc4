package entity

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	Id             uuid.UUID
	OrganizationId uuid.UUID
	UserId         *uuid.UUID
	FullName       string
	BirthDate      *time.Time
	Gender         string
}

// AgeAt returns the patient's age in whole years, or -1 when unknown.
func (p *Patient) AgeAt(now time.Time) int {
	if p.BirthDate == nil {
		return -1
	}
	b := *p.BirthDate
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age
}
