package handler

import (
	"context"

	"clinic-chat-be/internal/pkg/logger"
	"clinic-chat-be/internal/pkg/serverutils"
	"clinic-chat-be/internal/service"
	internalWS "clinic-chat-be/internal/websocket"
	"clinic-chat-be/pkg/access"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

type RealtimeHandler struct {
	messageService service.IMessageService
	notifications  *service.NotificationService
	guard          *access.Guard
	hub            *internalWS.Hub
	jwtSecret      string
	logger         logger.ILogger
}

func NewRealtimeHandler(
	messageService service.IMessageService,
	notifications *service.NotificationService,
	guard *access.Guard,
	hub *internalWS.Hub,
	jwtSecret string,
	log logger.ILogger,
) *RealtimeHandler {
	return &RealtimeHandler{
		messageService: messageService,
		notifications:  notifications,
		guard:          guard,
		hub:            hub,
		jwtSecret:      jwtSecret,
		logger:         log,
	}
}

func (h *RealtimeHandler) RegisterRoutes(r fiber.Router) {
	ws := r.Group("/ws")
	ws.Use(func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	ws.Use(serverutils.NewJwtMiddleware(h.jwtSecret))
	ws.Get("/sessions/:id", h.ServeSession)
	ws.Get("/escalations", h.ServeEscalations)
}

// ServeSession streams message.created and session.status events of one session.
// Viewers fetch missed history over HTTP; the socket carries no replay.
// Concurrent appends may arrive out of order: clients order messages by seq
// and treat a seq gap as a cue to fetch with after_seq.
func (h *RealtimeHandler) ServeSession(c *fiber.Ctx) error {
	sessionId, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid session id")
	}

	caller := serverutils.CallerFrom(c)
	if _, err := h.messageService.GetSession(c.UserContext(), caller, sessionId); err != nil {
		return err
	}

	topic := service.SessionTopic(sessionId)
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("RealtimeHandler", "Session viewer connected", map[string]interface{}{"chat_session_id": sessionId, "user_id": caller.UserId})
		internalWS.ServeWs(h.hub, conn, []string{topic}, nil)
		h.logger.Info("RealtimeHandler", "Session viewer left", map[string]interface{}{"chat_session_id": sessionId, "user_id": caller.UserId})
	})(c)
}

// ServeEscalations streams escalation updates and counts. Staff who can handle
// any escalation watch the whole organization; others only their own queue.
// Each count topic gets the current value once on connect.
func (h *RealtimeHandler) ServeEscalations(c *fiber.Ctx) error {
	ctx := c.UserContext()
	scope, err := h.guard.Resolve(ctx, serverutils.CallerFrom(c))
	if err != nil {
		return err
	}
	if err := h.guard.RequireStaff(scope); err != nil {
		return err
	}

	orgId, staff := scope.OrganizationId, scope.Staff
	staffTopic := service.StaffEscalationsTopic(orgId, staff.Id)
	topics := []string{staffTopic}
	if scope.CanHandleAny() {
		topics = append(topics, service.OrgEscalationsTopic(orgId))
	}

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(h.hub, conn, topics, func(sub *internalWS.Subscriber) {
			counts, err := h.notifications.Counts(context.Background(), orgId, staff)
			if err != nil {
				h.logger.Error("RealtimeHandler", "Failed to load count snapshot", map[string]interface{}{"staff_id": staff.Id, "error": err.Error()})
				return
			}
			for _, topic := range topics {
				h.hub.SendTo(sub, topic, service.EventEscalationCount, counts)
			}
		})
	})(c)
}
