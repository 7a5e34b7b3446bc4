package bootstrap

import (
	"context"
	"log"

	"clinic-chat-be/internal/config"
	"clinic-chat-be/internal/controller"
	"clinic-chat-be/internal/handler"
	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/pkg/mailer"
	"clinic-chat-be/internal/repository/unitofwork"
	"clinic-chat-be/internal/service"
	"clinic-chat-be/internal/websocket"
	"clinic-chat-be/pkg/access"
	"clinic-chat-be/pkg/conversation"
	"clinic-chat-be/pkg/events"
	"clinic-chat-be/pkg/llm"
	"clinic-chat-be/pkg/llm/factory"
	pktNats "clinic-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	Logger logger.ILogger

	// Controllers
	ChatController       controller.IChatController
	EscalationController controller.IEscalationController

	MessageService    service.IMessageService
	EscalationService service.IEscalationService

	// Background Services (Exposed for main.go to run)
	ResponderService service.IResponderService

	// WebSockets & Notification
	RealtimeHandler *handler.RealtimeHandler
	WebSocketHub    *websocket.Hub

	closers []func()
}

// Deps are the infrastructure pieces a Container is built from. Fields left
// nil are optional: without NATS no lifecycle events leave the process,
// without Redis fan-out stays on this instance.
type Deps struct {
	UowFactory unitofwork.RepositoryFactory
	LLM        llm.LLMProvider
	Events     events.Sink
	Redis      *redis.Client
	Mailer     mailer.IEmailService
	Logger     logger.ILogger
	HubLogger  logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	llmProvider, err := factory.NewLLMProvider(cfg.Ai, cfg.Keys.OpenAI)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	deps := Deps{
		UowFactory: unitofwork.NewRepositoryFactory(db),
		LLM:        llmProvider,
		Logger:     sysLogger,
		HubLogger:  logger.NewIsolatedLogger(cfg.App.RealtimeLogPath),
	}

	var closers []func()

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to connect to NATS, lifecycle events stay local", map[string]interface{}{"error": err.Error()})
	} else {
		deps.Events = natsPub
		closers = append(closers, natsPub.Close)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (realtime fan-out stays local)", err)
		_ = rdb.Close()
	} else {
		deps.Redis = rdb
		closers = append(closers, func() { _ = rdb.Close() })
	}

	if cfg.SMTP.Host != "" {
		deps.Mailer = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
		)
	}

	c := Build(cfg, deps)
	c.closers = append(c.closers, closers...)
	return c
}

// Build wires services, handlers and the hub from already connected infrastructure.
func Build(cfg *config.Config, deps Deps) *Container {
	if deps.HubLogger == nil {
		deps.HubLogger = deps.Logger
	}

	// Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 1024},
		watermill.NewStdLogger(false, false),
	)

	wsHub := websocket.NewHub(deps.Redis, cfg.App.InstanceID, cfg.Realtime.SendBuffer, deps.HubLogger)

	guard := access.NewGuard(deps.UowFactory, cfg.Access.CacheTTL)
	eventPublisher := events.NewLifecyclePublisher(deps.Events, deps.Logger)
	notifService := service.NewNotificationService(deps.UowFactory, wsHub, deps.HubLogger) // Hub implements NotificationDelivery

	messageService := service.NewMessageService(deps.UowFactory, guard, notifService, pubSub, deps.Logger)
	escalationService := service.NewEscalationService(
		deps.UowFactory,
		guard,
		notifService,
		eventPublisher,
		deps.Mailer,
		cfg.App.FrontendURL,
		deps.Logger,
	)
	responderService := service.NewResponderService(
		pubSub,
		deps.UowFactory,
		conversation.NewLoader(deps.UowFactory, cfg.Ai.ContextWindow),
		deps.LLM,
		messageService,
		service.ResponderConfig{
			ReplyTimeout:  cfg.Ai.ReplyTimeout,
			MaxConcurrent: cfg.Ai.MaxConcurrent,
			OrgCacheTTL:   cfg.Access.CacheTTL,
		},
		deps.Logger,
	)

	realtimeHandler := handler.NewRealtimeHandler(messageService, notifService, guard, wsHub, cfg.Keys.JwtSecret, deps.HubLogger)

	return &Container{
		Logger:               deps.Logger,
		ChatController:       controller.NewChatController(messageService, escalationService),
		EscalationController: controller.NewEscalationController(escalationService),
		MessageService:       messageService,
		EscalationService:    escalationService,
		ResponderService:     responderService,
		RealtimeHandler:      realtimeHandler,
		WebSocketHub:         wsHub,
		closers:              []func(){func() { _ = pubSub.Close() }},
	}
}

// Close releases connections opened by NewContainer.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	_ = c.Logger.Sync()
}
