package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"clinic-chat-be/internal/apperror"
	"clinic-chat-be/internal/constant"
	"clinic-chat-be/internal/dto"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/pkg/conversation"
	"clinic-chat-be/pkg/llm"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

const instrumentationName = "clinic-chat-be/responder"

// Failure reasons recorded on the responder.failures counter.
const (
	failureTimeout       = "timeout"
	failureUpstream      = "upstream"
	failureEmptyReply    = "empty_reply"
	failureSessionClosed = "session_closed"
	failureStore         = "store"
)

type ResponderConfig struct {
	ReplyTimeout  time.Duration
	MaxConcurrent int64
	OrgCacheTTL   time.Duration
}

// ResponderStats is a point-in-time snapshot of responder activity.
type ResponderStats struct {
	Triggered int64 `json:"triggered"`
	Replied   int64 `json:"replied"`
	Skipped   int64 `json:"skipped"`
	Failed    int64 `json:"failed"`
}

type IResponderService interface {
	Consume(ctx context.Context) error
	OnHumanOrPatientMessage(ctx context.Context, evt dto.MessageAppendedEvent)
	Stats() ResponderStats
	Wait()
}

// responderService answers patient and staff messages with an AI reply.
// It runs beside the write path and never holds a lock the sequencer needs.
type responderService struct {
	subscriber message.Subscriber
	uowFactory unitofwork.RepositoryFactory
	loader     *conversation.Loader
	provider   llm.LLMProvider
	messages   IMessageService
	logger     logger.ILogger

	cfg      ResponderConfig
	sem      *semaphore.Weighted
	orgs     *cache.Cache
	inflight sync.WaitGroup

	tracer   trace.Tracer
	failures metric.Int64Counter

	triggered atomic.Int64
	replied   atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

func NewResponderService(
	subscriber message.Subscriber,
	uowFactory unitofwork.RepositoryFactory,
	loader *conversation.Loader,
	provider llm.LLMProvider,
	messages IMessageService,
	cfg ResponderConfig,
	log logger.ILogger,
) IResponderService {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.ReplyTimeout <= 0 {
		cfg.ReplyTimeout = 30 * time.Second
	}
	if cfg.OrgCacheTTL <= 0 {
		cfg.OrgCacheTTL = 30 * time.Second
	}

	failures, err := otel.Meter(instrumentationName).Int64Counter("responder.failures",
		metric.WithDescription("AI replies that were not persisted"))
	if err != nil {
		log.Warn("RESPONDER", "Failed to create failure counter", map[string]interface{}{"error": err.Error()})
	}

	return &responderService{
		subscriber: subscriber,
		uowFactory: uowFactory,
		loader:     loader,
		provider:   provider,
		messages:   messages,
		logger:     log,
		cfg:        cfg,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		orgs:       cache.New(cfg.OrgCacheTTL, 2*cfg.OrgCacheTTL),
		tracer:     otel.Tracer(instrumentationName),
		failures:   failures,
	}
}

func (r *responderService) Consume(ctx context.Context) error {
	messages, err := r.subscriber.Subscribe(ctx, constant.TopicMessageAppended)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			r.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (r *responderService) processMessage(ctx context.Context, msg *message.Message) {
	// Replies are best effort, so the bus never redelivers.
	defer msg.Ack()

	var evt dto.MessageAppendedEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		r.logger.Error("RESPONDER", "Failed to unmarshal message event", map[string]interface{}{"error": err.Error()})
		return
	}

	r.inflight.Add(1)
	go func() {
		defer r.inflight.Done()
		r.OnHumanOrPatientMessage(ctx, evt)
	}()
}

// OnHumanOrPatientMessage produces at most one bot reply for a stored message.
func (r *responderService) OnHumanOrPatientMessage(ctx context.Context, evt dto.MessageAppendedEvent) {
	if evt.SenderKind == constant.SenderKindBot {
		return
	}

	enabled, err := r.aiEnabled(ctx, evt.OrganizationId)
	if err != nil {
		r.fail(ctx, evt, failureStore, err)
		return
	}
	if !enabled {
		r.skipped.Add(1)
		return
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.skipped.Add(1)
		return
	}
	defer r.sem.Release(1)

	r.triggered.Add(1)

	ctx, span := r.tracer.Start(ctx, "responder.reply", trace.WithAttributes(
		attribute.String("chat_session_id", evt.ChatSessionId.String()),
		attribute.Int64("trigger_seq", evt.Seq),
	))
	defer span.End()

	window, err := r.loader.Load(ctx, evt.ChatSessionId)
	if err != nil {
		r.fail(ctx, evt, failureStore, err)
		return
	}
	if window.Session.Status == constant.SessionStatusResolved {
		r.skipped.Add(1)
		return
	}

	replyCtx, cancel := context.WithTimeout(ctx, r.cfg.ReplyTimeout)
	defer cancel()

	reply, err := r.provider.Chat(replyCtx, conversation.BuildMessages(window, time.Now()))
	if err != nil {
		switch {
		case errors.Is(replyCtx.Err(), context.DeadlineExceeded):
			r.fail(ctx, evt, failureTimeout, err)
		case errors.Is(err, llm.ErrEmptyReply):
			r.fail(ctx, evt, failureEmptyReply, err)
		default:
			r.fail(ctx, evt, failureUpstream, errors.Join(apperror.ErrUpstreamUnavailable, err))
		}
		return
	}

	msg, err := r.messages.AppendBotMessage(ctx, evt.ChatSessionId, reply)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionClosed) {
			r.fail(ctx, evt, failureSessionClosed, err)
			return
		}
		r.fail(ctx, evt, failureStore, err)
		return
	}

	r.replied.Add(1)
	span.SetAttributes(attribute.Int64("reply_seq", msg.Seq))
	r.logger.Info("RESPONDER", "Bot reply stored", map[string]interface{}{
		"chat_session_id": evt.ChatSessionId,
		"trigger_seq":     evt.Seq,
		"reply_seq":       msg.Seq,
	})
}

func (r *responderService) aiEnabled(ctx context.Context, orgId uuid.UUID) (bool, error) {
	key := orgId.String()
	if v, ok := r.orgs.Get(key); ok {
		return v.(bool), nil
	}

	org, err := r.uowFactory.NewUnitOfWork(ctx).OrganizationRepository().FindById(ctx, orgId)
	if err != nil {
		return false, err
	}
	enabled := org != nil && org.AiResponderEnabled
	r.orgs.SetDefault(key, enabled)
	return enabled, nil
}

func (r *responderService) fail(ctx context.Context, evt dto.MessageAppendedEvent, reason string, err error) {
	r.failed.Add(1)
	if r.failures != nil {
		r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)

	r.logger.Warn("RESPONDER", "Bot reply dropped", map[string]interface{}{
		"chat_session_id": evt.ChatSessionId,
		"trigger_seq":     evt.Seq,
		"reason":          reason,
		"error":           err.Error(),
	})
}

func (r *responderService) Stats() ResponderStats {
	return ResponderStats{
		Triggered: r.triggered.Load(),
		Replied:   r.replied.Load(),
		Skipped:   r.skipped.Load(),
		Failed:    r.failed.Load(),
	}
}

// Wait blocks until replies already dispatched have finished.
func (r *responderService) Wait() {
	r.inflight.Wait()
}
