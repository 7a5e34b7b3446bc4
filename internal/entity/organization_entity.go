package entity

import "github.com/google/uuid"

type Organization struct {
	Id                 uuid.UUID
	Name               string
	AlertEmail         string
	AiResponderEnabled bool
}
