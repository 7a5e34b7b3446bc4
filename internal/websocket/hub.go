package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"clinic-chat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "cluster_events"

// Envelope is the frame every subscriber receives.
type Envelope struct {
	Type   string      `json:"type"`
	Topic  string      `json:"topic"`
	Data   interface{} `json:"data"`
	SentAt time.Time   `json:"sent_at"`
}

type relayPayload struct {
	Origin  string          `json:"origin"`
	Topic   string          `json:"topic"`
	Message json.RawMessage `json:"message"`
}

// Subscriber is one live viewer. Its queue is closed when the hub drops it.
type Subscriber struct {
	ID     uuid.UUID
	topics []string
	send   chan []byte
	once   sync.Once
}

// Messages is the subscriber's outbound queue.
func (s *Subscriber) Messages() <-chan []byte {
	return s.send
}

type topicSubscribers struct {
	mu   sync.Mutex
	subs map[*Subscriber]struct{}
}

type Hub struct {
	// mu guards the topic map only; each topic has its own lock.
	mu     sync.Mutex
	topics map[string]*topicSubscribers

	sendBuffer int
	instanceID string

	// Redis connection for cross-instance communication
	rdb *redis.Client

	// Dedicated Logger
	logger logger.ILogger
}

func NewHub(rdb *redis.Client, instanceID string, sendBuffer int, log logger.ILogger) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		topics:     make(map[string]*topicSubscribers),
		sendBuffer: sendBuffer,
		instanceID: instanceID,
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) topic(name string) *topicSubscribers {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.topics[name]
}

// Subscribe registers a new subscriber on the given topics. It only receives
// what is published from now on.
func (h *Hub) Subscribe(topics ...string) *Subscriber {
	sub := &Subscriber{
		ID:     uuid.New(),
		topics: topics,
		send:   make(chan []byte, h.sendBuffer),
	}
	// Held across insertion so Unsubscribe cannot drop a topic being joined.
	h.mu.Lock()
	for _, name := range topics {
		t, ok := h.topics[name]
		if !ok {
			t = &topicSubscribers{subs: make(map[*Subscriber]struct{})}
			h.topics[name] = t
		}
		t.mu.Lock()
		t.subs[sub] = struct{}{}
		t.mu.Unlock()
	}
	h.mu.Unlock()
	h.logger.Info("Hub", "Subscriber registered", map[string]interface{}{"subscriber_id": sub.ID, "topics": topics})
	return sub
}

// Unsubscribe removes sub from all of its topics, then closes its queue.
// Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	for _, name := range sub.topics {
		t := h.topic(name)
		if t == nil {
			continue
		}
		t.mu.Lock()
		delete(t.subs, sub)
		empty := len(t.subs) == 0
		t.mu.Unlock()

		if empty {
			h.mu.Lock()
			t.mu.Lock()
			if len(t.subs) == 0 && h.topics[name] == t {
				delete(h.topics, name)
			}
			t.mu.Unlock()
			h.mu.Unlock()
		}
	}
	sub.once.Do(func() {
		close(sub.send)
		h.logger.Info("Hub", "Subscriber removed", map[string]interface{}{"subscriber_id": sub.ID})
	})
}

// SubscriberCount reports how many subscribers a topic has on this instance.
func (h *Hub) SubscriberCount(topic string) int {
	t := h.topic(topic)
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

func (h *Hub) encode(topic, eventType string, data interface{}) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:   eventType,
		Topic:  topic,
		Data:   data,
		SentAt: time.Now(),
	})
}

// Publish delivers an event to local subscribers of topic and relays it to
// the other instances.
func (h *Hub) Publish(ctx context.Context, topic, eventType string, data interface{}) {
	frame, err := h.encode(topic, eventType, data)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{"topic": topic, "type": eventType, "error": err.Error()})
		return
	}

	h.deliverLocal(topic, frame)

	if h.rdb != nil {
		payload, _ := json.Marshal(relayPayload{
			Origin:  h.instanceID,
			Topic:   topic,
			Message: frame,
		})
		if err := h.rdb.Publish(ctx, relayChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Failed to relay event", map[string]interface{}{"topic": topic, "error": err.Error()})
		}
	}
}

// SendTo delivers an event to a single subscriber without relaying it.
func (h *Hub) SendTo(sub *Subscriber, topic, eventType string, data interface{}) {
	frame, err := h.encode(topic, eventType, data)
	if err != nil {
		h.logger.Error("Hub", "Failed to encode event", map[string]interface{}{"topic": topic, "type": eventType, "error": err.Error()})
		return
	}

	t := h.topic(topic)
	if t == nil {
		return
	}
	t.mu.Lock()
	_, ok := t.subs[sub]
	full := false
	if ok {
		select {
		case sub.send <- frame:
		default:
			full = true
		}
	}
	t.mu.Unlock()

	if full {
		h.evict(sub, topic)
	}
}

func (h *Hub) deliverLocal(topic string, frame []byte) {
	t := h.topic(topic)
	if t == nil {
		return
	}

	var slow []*Subscriber
	t.mu.Lock()
	for sub := range t.subs {
		select {
		case sub.send <- frame:
		default:
			slow = append(slow, sub)
		}
	}
	t.mu.Unlock()

	for _, sub := range slow {
		h.evict(sub, topic)
	}
}

func (h *Hub) evict(sub *Subscriber, topic string) {
	h.logger.Warn("Hub", "Subscriber queue full, evicting", map[string]interface{}{"subscriber_id": sub.ID, "topic": topic})
	h.Unsubscribe(sub)
}

func (h *Hub) handleRelay(raw string) {
	var payload relayPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		h.logger.Warn("Hub", "Relay message parse error", map[string]interface{}{"error": err.Error()})
		return
	}
	if payload.Origin == h.instanceID {
		return
	}
	h.deliverLocal(payload.Topic, payload.Message)
}

// Run consumes relays from the other instances until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		return
	}

	pubsub := h.rdb.Subscribe(ctx, relayChannel)
	defer pubsub.Close()

	h.logger.Info("Hub", "Relay subscriber started", map[string]interface{}{"instance_id": h.instanceID})
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.handleRelay(msg.Payload)
		}
	}
}
