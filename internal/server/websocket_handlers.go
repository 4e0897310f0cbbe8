package server

import (
	"errors"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const wsTicketTTL = 30 * time.Second

// IssueWSTicket issues a short-lived single-use websocket ticket. Browser
// websocket clients cannot set an Authorization header, so they trade the
// JWT for a ticket here and pass it as a query parameter on the upgrade.
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	userID := c.Locals("userID").(uint)

	if s.redis == nil {
		return models.RespondWithError(c, fiber.StatusServiceUnavailable,
			models.NewInternalError(errors.New("ticket store unavailable")))
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.Context(), wsTicketKey(ticket), userID, wsTicketTTL).Err(); err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// WebsocketHandler returns a websocket handler that registers connections
// with the hub. Authentication is handled by route middleware and userID is
// read from connection locals. The personal topic is bound at registration;
// post topics are joined through inbound frames.
func (s *Server) WebsocketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userIDVal := conn.Locals("userID")
		if userIDVal == nil {
			_ = conn.Close()
			return
		}
		userID, ok := userIDVal.(uint)
		if !ok {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(userID, conn)
		if err != nil {
			observability.Logger.Warn("websocket registration refused",
				slog.Any("user_id", userID), slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}
		defer s.hub.UnregisterClient(client)

		go client.WritePump()
		client.ReadPump()
	})
}
