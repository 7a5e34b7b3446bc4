package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/entity"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/pkg/mailer"
	"clinic-chat-be/internal/repository/memory"
	"clinic-chat-be/internal/repository/seed"
	"clinic-chat-be/pkg/access"
	"clinic-chat-be/pkg/conversation"
	"clinic-chat-be/pkg/events"
	"clinic-chat-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/require"
)

type published struct {
	Topic string
	Type  string
	Data  interface{}
}

type recordingDelivery struct {
	mu     sync.Mutex
	events []published
}

func (d *recordingDelivery) Publish(ctx context.Context, topic, eventType string, data interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, published{Topic: topic, Type: eventType, Data: data})
}

func (d *recordingDelivery) on(topic string) []published {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []published
	for _, e := range d.events {
		if e.Topic == topic {
			out = append(out, e)
		}
	}
	return out
}

func (d *recordingDelivery) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = nil
}

type recordingSink struct {
	mu    sync.Mutex
	types []string
}

func (s *recordingSink) Publish(ctx context.Context, event events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, event.EventType())
	return nil
}

func (s *recordingSink) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.types...)
}

type recordingMailer struct {
	mu     sync.Mutex
	alerts []mailer.EscalationAlert
}

func (m *recordingMailer) SendEscalationAlert(toEmail string, alert mailer.EscalationAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *recordingMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alerts)
}

// fakeLLM answers with reply after delay unless ctx ends first.
type fakeLLM struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	calls   int
	history [][]llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	f.mu.Lock()
	f.calls++
	f.history = append(f.history, history)
	reply, err, delay := f.reply, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fixture struct {
	store    *memory.Store
	clinic   *seed.Clinic
	delivery *recordingDelivery
	sink     *recordingSink
	mail     *recordingMailer
	llm      *fakeLLM

	messages    IMessageService
	escalations IEscalationService
	responder   IResponderService
}

func newFixture(t *testing.T, aiEnabled bool, cfg ResponderConfig) *fixture {
	t.Helper()

	store := memory.NewStore()
	clinic, err := seed.DemoClinic(context.Background(), store, aiEnabled)
	require.NoError(t, err)

	log := logger.NewNopLogger()
	bus := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, watermill.NopLogger{})
	t.Cleanup(func() { _ = bus.Close() })

	f := &fixture{
		store:    store,
		clinic:   clinic,
		delivery: &recordingDelivery{},
		sink:     &recordingSink{},
		mail:     &recordingMailer{},
		llm:      &fakeLLM{reply: "Please rest and drink fluids."},
	}

	guard := access.NewGuard(store, time.Minute)
	notifications := NewNotificationService(store, f.delivery, log)
	f.messages = NewMessageService(store, guard, notifications, bus, log)
	f.escalations = NewEscalationService(store, guard, notifications, events.NewLifecyclePublisher(f.sink, log), f.mail, "https://desk.example", log)
	f.responder = NewResponderService(bus, store, conversation.NewLoader(store, 20), f.llm, f.messages, cfg, log)
	return f
}

func (f *fixture) startResponder(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		f.responder.Wait()
	})
	require.NoError(t, f.responder.Consume(ctx))
}

func staff(s *entity.StaffMember) access.Caller {
	return access.Caller{UserId: s.UserId, OrganizationId: s.OrganizationId, Role: constant.RoleStaff}
}

func (f *fixture) patient() access.Caller {
	return access.Caller{UserId: *f.clinic.Patient.UserId, OrganizationId: f.clinic.Organization.Id, Role: constant.RolePatient}
}
