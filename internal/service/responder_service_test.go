package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponderRepliesToPatient(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, ResponderConfig{ReplyTimeout: time.Second, MaxConcurrent: 2})
	f.startResponder(t)

	session := f.openWithMessage(t, "I have had a fever since yesterday")

	assert.Eventually(t, func() bool {
		history, err := f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
		return err == nil && len(history) == 2
	}, 2*time.Second, 10*time.Millisecond)

	history, err := f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, constant.SenderKindBot, history[1].SenderKind)
	assert.Nil(t, history[1].SenderId)
	assert.Equal(t, "Please rest and drink fluids.", history[1].Body)
	assert.Equal(t, int64(2), history[1].Seq)

	// The bot's own message never triggers another reply.
	assert.Never(t, func() bool { return f.llm.callCount() > 1 }, 150*time.Millisecond, 10*time.Millisecond)

	stats := f.responder.Stats()
	assert.Equal(t, int64(1), stats.Triggered)
	assert.Equal(t, int64(1), stats.Replied)
	assert.Equal(t, int64(0), stats.Failed)

	f.llm.mu.Lock()
	prompt := f.llm.history[0]
	f.llm.mu.Unlock()
	require.Len(t, prompt, 2)
	assert.Equal(t, constant.LLMRoleSystem, prompt[0].Role)
	assert.Contains(t, prompt[0].Content, f.clinic.Organization.Name)
	assert.Equal(t, constant.LLMRoleUser, prompt[1].Role)
	assert.Equal(t, "I have had a fever since yesterday", prompt[1].Content)
}

func TestSlowResponderDoesNotDelayAppends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, ResponderConfig{ReplyTimeout: 5 * time.Second, MaxConcurrent: 4})
	f.llm.delay = 300 * time.Millisecond
	f.startResponder(t)

	session, err := f.messages.OpenSession(ctx, f.patient(), nil)
	require.NoError(t, err)

	start := time.Now()
	first, err := f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: "Hello"})
	require.NoError(t, err)
	second, err := f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: "Are you there?"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	assert.Eventually(t, func() bool { return f.responder.Stats().Replied == 2 }, 3*time.Second, 10*time.Millisecond)

	history, err := f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
	require.NoError(t, err)
	require.Len(t, history, 4)
	for i, m := range history {
		assert.Equal(t, int64(i+1), m.Seq)
	}
	assert.Equal(t, constant.SenderKindBot, history[2].SenderKind)
	assert.Equal(t, constant.SenderKindBot, history[3].SenderKind)
}

func TestResponderSkipsDisabledOrganization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false, ResponderConfig{})
	session := f.openWithMessage(t, "Hi")

	f.responder.OnHumanOrPatientMessage(ctx, dto.MessageAppendedEvent{
		ChatSessionId:  session.Id,
		OrganizationId: f.clinic.Organization.Id,
		SenderKind:     constant.SenderKindPatient,
		Seq:            1,
	})

	assert.Equal(t, 0, f.llm.callCount())
	assert.Equal(t, ResponderStats{Skipped: 1}, f.responder.Stats())
}

func TestResponderIgnoresBotMessages(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, ResponderConfig{})
	session := f.openWithMessage(t, "Hi")

	f.responder.OnHumanOrPatientMessage(ctx, dto.MessageAppendedEvent{
		ChatSessionId:  session.Id,
		OrganizationId: f.clinic.Organization.Id,
		SenderKind:     constant.SenderKindBot,
		Seq:            1,
	})

	assert.Equal(t, 0, f.llm.callCount())
	assert.Equal(t, ResponderStats{}, f.responder.Stats())
}

func TestResponderFailuresAreDropped(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*fakeLLM)
	}{
		{"timeout", func(l *fakeLLM) { l.delay = time.Second }},
		{"upstream error", func(l *fakeLLM) { l.err = errors.New("503 service unavailable") }},
		{"empty reply", func(l *fakeLLM) { l.err = llm.ErrEmptyReply }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t, true, ResponderConfig{ReplyTimeout: 50 * time.Millisecond})
			tc.setup(f.llm)
			session := f.openWithMessage(t, "Hi")

			f.responder.OnHumanOrPatientMessage(ctx, dto.MessageAppendedEvent{
				ChatSessionId:  session.Id,
				OrganizationId: f.clinic.Organization.Id,
				SenderKind:     constant.SenderKindPatient,
				Seq:            1,
			})

			assert.Equal(t, ResponderStats{Triggered: 1, Failed: 1}, f.responder.Stats())

			history, err := f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
			require.NoError(t, err)
			assert.Len(t, history, 1)

			// The session stays usable.
			_, err = f.messages.Append(ctx, f.patient(), session.Id, &dto.AppendMessageRequest{Body: "Hello?"})
			assert.NoError(t, err)
		})
	}
}

func TestResponderDropsReplyForClosedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, ResponderConfig{ReplyTimeout: 5 * time.Second, MaxConcurrent: 1})
	f.llm.delay = 200 * time.Millisecond
	f.startResponder(t)

	session := f.openWithMessage(t, "Can someone call me?")

	assert.Eventually(t, func() bool { return f.llm.callCount() == 1 }, time.Second, 5*time.Millisecond)
	_, err := f.escalations.CloseSession(ctx, staff(f.clinic.Nurse), session.Id)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return f.responder.Stats().Failed == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(0), f.responder.Stats().Replied)

	history, err := f.messages.GetHistory(ctx, f.patient(), session.Id, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestResponderRepliesInEscalatedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true, ResponderConfig{ReplyTimeout: time.Second})
	session := f.openWithMessage(t, "Still waiting")

	_, err := f.escalations.Escalate(ctx, staff(f.clinic.Nurse), session.Id, nil)
	require.NoError(t, err)
	staffMsg, err := f.messages.Append(ctx, staff(f.clinic.Nurse), session.Id, &dto.AppendMessageRequest{Body: "A nurse will call you shortly"})
	require.NoError(t, err)

	f.responder.OnHumanOrPatientMessage(ctx, dto.MessageAppendedEvent{
		ChatSessionId:  session.Id,
		OrganizationId: f.clinic.Organization.Id,
		SenderKind:     constant.SenderKindStaff,
		Seq:            staffMsg.Seq,
	})
	assert.Equal(t, int64(1), f.responder.Stats().Replied)

	f.llm.mu.Lock()
	prompt := f.llm.history[0]
	f.llm.mu.Unlock()
	last := prompt[len(prompt)-1]
	assert.Equal(t, constant.LLMRoleAssistant, last.Role)
	assert.Equal(t, "[Clinic staff] A nurse will call you shortly", last.Content)
}
