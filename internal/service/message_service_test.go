package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})

	t.Run("patient opens for themselves", func(t *testing.T) {
		session, err := f.messages.OpenSession(ctx, f.patient(), nil)
		require.NoError(t, err)
		assert.Equal(t, f.clinic.Patient.Id, session.SubjectId)
		assert.Equal(t, constant.SessionStatusActive, session.Status)
	})

	t.Run("staff must name a patient", func(t *testing.T) {
		_, err := f.messages.OpenSession(ctx, staff(f.clinic.Nurse), &dto.OpenSessionRequest{})
		assert.ErrorIs(t, err, apperror.ErrInvalidInput)

		unknown := uuid.New()
		_, err = f.messages.OpenSession(ctx, staff(f.clinic.Nurse), &dto.OpenSessionRequest{SubjectId: &unknown})
		assert.ErrorIs(t, err, apperror.ErrNotFound)

		session, err := f.messages.OpenSession(ctx, staff(f.clinic.Nurse), &dto.OpenSessionRequest{SubjectId: &f.clinic.Patient.Id})
		require.NoError(t, err)
		assert.Equal(t, f.clinic.Organization.Id, session.OrganizationId)
	})

	t.Run("outsider is rejected", func(t *testing.T) {
		outsider := staff(f.clinic.Nurse)
		outsider.OrganizationId = uuid.New()
		_, err := f.messages.OpenSession(ctx, outsider, nil)
		assert.ErrorIs(t, err, apperror.ErrForbidden)
	})
}

func TestAppendAssignsSequentialSeq(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})

	session, err := f.messages.OpenSession(ctx, f.patient(), nil)
	require.NoError(t, err)

	first, err := f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: "I have a fever"})
	require.NoError(t, err)
	second, err := f.messages.Append(ctx, staff(f.clinic.Nurse), session.Id, &dto.AppendMessageRequest{Body: "How high is it?"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, constant.SenderKindPatient, first.SenderKind)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, constant.SenderKindStaff, second.SenderKind)
	assert.Equal(t, f.clinic.Nurse.Id, *second.SenderId)

	created := f.delivery.on(SessionTopic(session.Id))
	require.Len(t, created, 2)
	assert.Equal(t, EventMessageCreated, created[0].Type)
	assert.Equal(t, int64(2), created[1].Data.(*dto.ChatMessageResponse).Seq)
}

func TestConcurrentAppendsAreGapFree(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})

	session, err := f.messages.OpenSession(ctx, f.patient(), nil)
	require.NoError(t, err)

	const perWriter = 10
	writers := []func(i int) error{
		func(i int) error {
			_, err := f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: fmt.Sprintf("patient %d", i)})
			return err
		},
		func(i int) error {
			_, err := f.messages.Append(ctx, staff(f.clinic.Nurse), session.Id, &dto.AppendMessageRequest{Body: fmt.Sprintf("nurse %d", i)})
			return err
		},
		func(i int) error {
			_, err := f.messages.AppendBotMessage(ctx, session.Id, fmt.Sprintf("bot %d", i))
			return err
		},
	}

	var wg sync.WaitGroup
	for _, write := range writers {
		for i := 0; i < perWriter; i++ {
			wg.Add(1)
			go func(write func(int) error, i int) {
				defer wg.Done()
				assert.NoError(t, write(i))
			}(write, i)
		}
	}
	wg.Wait()

	history, err := f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
	require.NoError(t, err)
	require.Len(t, history, len(writers)*perWriter)
	for i, m := range history {
		assert.Equal(t, int64(i+1), m.Seq)
	}

	// Frames may interleave, but every seq reaches viewers exactly once.
	var delivered []int64
	for _, e := range f.delivery.on(SessionTopic(session.Id)) {
		if e.Type == EventMessageCreated {
			delivered = append(delivered, e.Data.(*dto.ChatMessageResponse).Seq)
		}
	}
	sort.Slice(delivered, func(i, j int) bool { return delivered[i] < delivered[j] })
	require.Len(t, delivered, len(history))
	for i, seq := range delivered {
		assert.Equal(t, int64(i+1), seq)
	}
}

func TestGetHistoryAfterSeq(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})

	session, err := f.messages.OpenSession(ctx, f.patient(), nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	tail, err := f.messages.GetHistory(ctx, staff(f.clinic.Receptionist), session.Id, 3)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Equal(t, int64(4), tail[0].Seq)
	assert.Equal(t, "m4", tail[1].Body)

	_, err = f.messages.GetHistory(ctx, f.patient(), session.Id, -1)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestPatientCannotReadOthersSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})

	userId := uuid.New()
	other := &entity.Patient{OrganizationId: f.clinic.Organization.Id, UserId: &userId, FullName: "Jon Park"}
	require.NoError(t, f.store.NewUnitOfWork(ctx).PatientRepository().Create(ctx, other))

	session, err := f.messages.OpenSession(ctx, staff(f.clinic.Nurse), &dto.OpenSessionRequest{SubjectId: &other.Id})
	require.NoError(t, err)

	_, err = f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
	assert.ErrorIs(t, err, apperror.ErrForbidden)
	_, err = f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: "hello?"})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = f.messages.GetSession(ctx, f.patient(), uuid.New())
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestAppendRejectsBlankBody(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})

	session, err := f.messages.OpenSession(ctx, f.patient(), nil)
	require.NoError(t, err)

	_, err = f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: "   "})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
}
