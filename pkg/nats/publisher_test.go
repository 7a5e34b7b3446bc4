package nats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"clinic-chat-be/pkg/events"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type logEntry struct {
	level   string
	message string
	details map[string]interface{}
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, message: message, details: details})
}

func (l *recordingLogger) Debug(module, message string, details map[string]interface{}) {
	l.add("debug", message, details)
}
func (l *recordingLogger) Info(module, message string, details map[string]interface{}) {
	l.add("info", message, details)
}
func (l *recordingLogger) Warn(module, message string, details map[string]interface{}) {
	l.add("warn", message, details)
}
func (l *recordingLogger) Error(module, message string, details map[string]interface{}) {
	l.add("error", message, details)
}
func (l *recordingLogger) Sync() error { return nil }

type fakeStreams struct {
	err error
	got *jetstream.StreamConfig
}

func (f *fakeStreams) CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.got = &cfg
	return nil, f.err
}

func TestEnsureStream(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		log := &recordingLogger{}
		sm := &fakeStreams{}
		ensureStream(context.Background(), sm, log)

		require.NotNil(t, sm.got)
		assert.Equal(t, "CLINIC_EVENTS", sm.got.Name)
		assert.Equal(t, []string{"events.>"}, sm.got.Subjects)
		require.Len(t, log.entries, 1)
		assert.Equal(t, "info", log.entries[0].level)
	})

	t.Run("failure goes to the logger", func(t *testing.T) {
		log := &recordingLogger{}
		ensureStream(context.Background(), &fakeStreams{err: errors.New("jetstream not enabled")}, log)

		require.Len(t, log.entries, 1)
		assert.Equal(t, "warn", log.entries[0].level)
		assert.Equal(t, "jetstream not enabled", log.entries[0].details["error"])
		assert.Equal(t, streamName, log.entries[0].details["stream"])
	})
}

func TestEncodeUsesEventSubject(t *testing.T) {
	subject, data, err := encode(events.BaseEvent{
		Type: events.EscalationAssigned,
		Data: map[string]interface{}{"escalation_id": "e-1", "status": "in_progress"},
	})
	require.NoError(t, err)
	assert.Equal(t, "events.ESCALATION_ASSIGNED", subject)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "e-1", payload["escalation_id"])
	assert.Equal(t, "in_progress", payload["status"])
}

func TestEncodeRejectsUnmarshalablePayload(t *testing.T) {
	_, _, err := encode(events.BaseEvent{
		Type: events.EscalationCreated,
		Data: map[string]interface{}{"bad": make(chan int)},
	})
	assert.Error(t, err)
}
