package unitofwork

import (
	"context"

	"clinic-chat-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	EscalationRepository() contract.EscalationRepository

	OrganizationRepository() contract.OrganizationRepository
	StaffRepository() contract.StaffRepository
	PatientRepository() contract.PatientRepository
}
