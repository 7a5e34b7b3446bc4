package conversation

import (
	"context"
	"testing"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/repository/memory"
	"clinic-chat-be/internal/repository/seed"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadKeepsLatestWindowInSeqOrder(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	clinic, err := seed.DemoClinic(ctx, store, true)
	require.NoError(t, err)

	uow := store.NewUnitOfWork(ctx)
	session := &entity.ChatSession{OrganizationId: clinic.Organization.Id, SubjectId: clinic.Patient.Id}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))
	for _, body := range []string{"one", "two", "three", "four"} {
		require.NoError(t, uow.ChatMessageRepository().AppendNext(ctx, &entity.ChatMessage{
			ChatSessionId: session.Id,
			SenderKind:    constant.SenderKindPatient,
			Body:          body,
		}))
	}

	w, err := NewLoader(store, 3).Load(ctx, session.Id)
	require.NoError(t, err)
	require.Len(t, w.History, 3)
	assert.Equal(t, []int64{2, 3, 4}, []int64{w.History[0].Seq, w.History[1].Seq, w.History[2].Seq})
	assert.Equal(t, clinic.Organization.Name, w.Organization.Name)
	assert.Equal(t, clinic.Patient.Id, w.Patient.Id)

	_, err = NewLoader(store, 3).Load(ctx, uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBuildMessages(t *testing.T) {
	birth := time.Date(1990, time.June, 30, 0, 0, 0, 0, time.UTC)
	w := &Window{
		Organization: &entity.Organization{Name: "Harbor Clinic"},
		Patient:      &entity.Patient{FullName: "Ana Silva", BirthDate: &birth, Gender: "female"},
		History: []*entity.ChatMessage{
			{SenderKind: constant.SenderKindPatient, Body: "I have a fever", Seq: 1},
			{SenderKind: constant.SenderKindBot, Body: "Since when?", Seq: 2},
			{SenderKind: constant.SenderKindStaff, Body: "A nurse will call you", Seq: 3},
		},
	}

	msgs := BuildMessages(w, time.Date(2024, time.June, 29, 0, 0, 0, 0, time.UTC))
	require.Len(t, msgs, 4)

	assert.Equal(t, constant.LLMRoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Harbor Clinic")
	assert.Contains(t, msgs[0].Content, "Ana Silva")
	assert.Contains(t, msgs[0].Content, "Age: 33")
	assert.Equal(t, constant.LLMRoleUser, msgs[1].Role)
	assert.Equal(t, constant.LLMRoleAssistant, msgs[2].Role)
	assert.Equal(t, "[Clinic staff] A nurse will call you", msgs[3].Content)
}

func TestBuildMessagesWithoutPatient(t *testing.T) {
	w := &Window{Organization: &entity.Organization{Name: "Harbor Clinic"}}
	msgs := BuildMessages(w, time.Now())
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Content, "Name: Unknown")
}
