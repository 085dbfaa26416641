package server

import (
	"encoding/json"
	"log/slog"

	"threads/internal/featureflags"
	"threads/internal/middleware"
	"threads/internal/models"
	"threads/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketUpgrade authenticates GET /ws before the protocol switch. Browsers
// cannot set headers on websocket requests, so the session token may also be
// passed as ?token=.
func (s *Server) WebsocketUpgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	token, ok := middleware.BearerToken(c)
	if !ok {
		token = c.Query("token")
	}
	if token == "" {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Missing session token"))
	}

	userID, err := s.tokens.VerifySession(token)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, err)
	}

	if s.hub == nil || !s.featureFlags.Enabled(featureflags.RealtimeNotifications, userID) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Realtime notifications", nil))
	}

	middleware.SetUserID(c, userID)
	return c.Next()
}

// WebsocketHandler streams follow, like and comment notifications to the caller.
// @Summary Realtime notifications
// @Tags realtime
// @Param token query string false "Session token"
// @Success 101
// @Failure 401 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals("userID").(uint)
		if !ok || s.hub == nil {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			observability.GlobalLogger.Warn("websocket register failed",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()),
			)
			msg, _ := json.Marshal(fiber.Map{"error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		hello, _ := json.Marshal(fiber.Map{"type": "connected", "userId": uid})
		client.TrySend(hello)

		go client.WritePump()
		client.ReadPump()
	})
}
