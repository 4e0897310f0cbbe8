package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications returns one page of the caller's notifications, newest
// first. ?unread=true restricts the page to unread records.
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	p := parsePagination(c)
	unreadOnly := c.QueryBool("unread", false)

	page, err := s.notificationService.List(ctx, userID, p.Page, p.PageSize, unreadOnly)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(page)
}

// GetUnreadCount returns the caller's unread notification count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	count, err := s.notificationService.UnreadCount(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// MarkNotificationRead marks a single notification as read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notificationService.MarkRead(ctx, userID, id); err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkNotificationsRead marks a batch of notifications as read. Ids not
// owned by the caller are skipped.
func (s *Server) MarkNotificationsRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		IDs []uint `json:"ids"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if len(req.IDs) == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("ids is required"))
	}

	marked, err := s.notificationService.MarkReadBatch(ctx, userID, req.IDs)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}

// MarkAllNotificationsRead marks every unread notification of the caller
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	marked, err := s.notificationService.MarkAllRead(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"marked": marked})
}

// DeleteNotification removes one notification of the caller
func (s *Server) DeleteNotification(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.notificationService.Delete(ctx, userID, id); err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"message": "Notification deleted"})
}

// DeleteAllNotifications removes every notification of the caller
func (s *Server) DeleteAllNotifications(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	deleted, err := s.notificationService.DeleteAll(ctx, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"deleted": deleted})
}
