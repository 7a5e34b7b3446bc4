package integration

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/model"
	"clinic-chat-be/internal/repository/seed"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, "test")
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.Organization{},
		&model.StaffMember{},
		&model.Patient{},
		&model.ChatSession{},
		&model.ChatMessage{},
		&model.Escalation{},
	))
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS idx_escalations_active_session
		ON escalations (chat_session_id) WHERE status <> 'resolved'`).Error)
	return db
}

func TestGormStore(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	factory := unitofwork.NewRepositoryFactory(db)

	clinic, err := seed.DemoClinic(ctx, factory, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Where("organization_id = ?", clinic.Organization.Id).Delete(&model.Escalation{})
		db.Where("chat_session_id IN (?)", db.Model(&model.ChatSession{}).Select("id").Where("organization_id = ?", clinic.Organization.Id)).Delete(&model.ChatMessage{})
		db.Where("organization_id = ?", clinic.Organization.Id).Delete(&model.ChatSession{})
		db.Where("organization_id = ?", clinic.Organization.Id).Delete(&model.Patient{})
		db.Where("organization_id = ?", clinic.Organization.Id).Delete(&model.StaffMember{})
		db.Delete(&model.Organization{}, "id = ?", clinic.Organization.Id)
	})

	org, err := factory.NewUnitOfWork(ctx).OrganizationRepository().FindById(ctx, clinic.Organization.Id)
	require.NoError(t, err)
	assert.True(t, org.AiResponderEnabled)

	newSession := func(t *testing.T) *entity.ChatSession {
		session := &entity.ChatSession{OrganizationId: clinic.Organization.Id, SubjectId: clinic.Patient.Id, Status: constant.SessionStatusActive}
		require.NoError(t, factory.NewUnitOfWork(ctx).ChatSessionRepository().Create(ctx, session))
		return session
	}

	t.Run("concurrent appends get gap-free seq", func(t *testing.T) {
		session := newSession(t)

		const writers = 20
		var wg sync.WaitGroup
		wg.Add(writers)
		for i := 0; i < writers; i++ {
			go func() {
				defer wg.Done()
				msg := &entity.ChatMessage{ChatSessionId: session.Id, SenderKind: constant.SenderKindPatient, Body: "ping"}
				assert.NoError(t, factory.NewUnitOfWork(ctx).ChatMessageRepository().AppendNext(ctx, msg))
			}()
		}
		wg.Wait()

		messages, err := factory.NewUnitOfWork(ctx).ChatMessageRepository().FindBySession(ctx, session.Id, 0)
		require.NoError(t, err)
		require.Len(t, messages, writers)
		for i, m := range messages {
			assert.Equal(t, int64(i+1), m.Seq)
		}
	})

	t.Run("append to resolved session fails", func(t *testing.T) {
		session := newSession(t)
		ok, err := factory.NewUnitOfWork(ctx).ChatSessionRepository().TransitionStatus(ctx, session.Id,
			[]string{constant.SessionStatusActive}, constant.SessionStatusResolved)
		require.NoError(t, err)
		require.True(t, ok)

		err = factory.NewUnitOfWork(ctx).ChatMessageRepository().AppendNext(ctx, &entity.ChatMessage{ChatSessionId: session.Id, SenderKind: constant.SenderKindPatient, Body: "late"})
		assert.ErrorIs(t, err, apperror.ErrSessionClosed)
	})

	t.Run("one claim wins", func(t *testing.T) {
		session := newSession(t)
		esc := &entity.Escalation{
			ChatSessionId:  session.Id,
			OrganizationId: session.OrganizationId,
			Priority:       constant.EscalationPriorityHigh,
			Status:         constant.EscalationStatusOpen,
		}
		require.NoError(t, factory.NewUnitOfWork(ctx).EscalationRepository().Create(ctx, esc))

		staffIds := []uuid.UUID{clinic.Nurse.Id, clinic.Doctor.Id, clinic.Receptionist.Id}
		wins := make([]bool, len(staffIds))
		var wg sync.WaitGroup
		wg.Add(len(staffIds))
		for i, id := range staffIds {
			go func(i int, id uuid.UUID) {
				defer wg.Done()
				won, err := factory.NewUnitOfWork(ctx).EscalationRepository().ClaimUnassigned(ctx, esc.Id, id)
				assert.NoError(t, err)
				wins[i] = won
			}(i, id)
		}
		wg.Wait()

		winners := 0
		for _, w := range wins {
			if w {
				winners++
			}
		}
		assert.Equal(t, 1, winners)

		ok, err := factory.NewUnitOfWork(ctx).EscalationRepository().MarkResolved(ctx, esc.Id, clinic.Nurse.Id, time.Now())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("single active escalation per session", func(t *testing.T) {
		session := newSession(t)
		repo := factory.NewUnitOfWork(ctx).EscalationRepository()

		require.NoError(t, repo.Create(ctx, &entity.Escalation{ChatSessionId: session.Id, OrganizationId: session.OrganizationId, Priority: constant.EscalationPriorityLow, Status: constant.EscalationStatusOpen}))
		err := repo.Create(ctx, &entity.Escalation{ChatSessionId: session.Id, OrganizationId: session.OrganizationId, Priority: constant.EscalationPriorityLow, Status: constant.EscalationStatusOpen})
		assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	})

	t.Run("rollback discards escalation", func(t *testing.T) {
		session := newSession(t)

		uow := factory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		_, err := uow.ChatSessionRepository().TransitionStatus(ctx, session.Id,
			[]string{constant.SessionStatusActive}, constant.SessionStatusEscalated)
		require.NoError(t, err)
		require.NoError(t, uow.EscalationRepository().Create(ctx, &entity.Escalation{ChatSessionId: session.Id, OrganizationId: session.OrganizationId, Priority: constant.EscalationPriorityMedium, Status: constant.EscalationStatusOpen}))
		require.NoError(t, uow.Rollback())

		reloaded, err := factory.NewUnitOfWork(ctx).ChatSessionRepository().FindById(ctx, session.Id)
		require.NoError(t, err)
		assert.Equal(t, constant.SessionStatusActive, reloaded.Status)
		active, err := factory.NewUnitOfWork(ctx).EscalationRepository().FindActiveBySession(ctx, session.Id)
		require.NoError(t, err)
		assert.Nil(t, active)
	})
}
