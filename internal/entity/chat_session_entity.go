package entity

import (
	"time"

	"github.com/google/uuid"
)

type ChatSession struct {
	Id             uuid.UUID
	OrganizationId uuid.UUID
	SubjectId      uuid.UUID
	Status         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
