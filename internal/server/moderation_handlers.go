package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetReportedComments returns the moderation queue (moderators only)
func (s *Server) GetReportedComments(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	p := parsePagination(c)
	queue, err := s.commentService.ReportedComments(ctx, userID, p.Page, p.PageSize)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.JSON(fiber.Map{
		"reported":  queue,
		"page":      p.Page,
		"page_size": p.PageSize,
	})
}

// ResolveReport clears a comment's reported flag (moderators only)
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.commentService.ResolveReport(ctx, userID, commentID); err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Report resolved"})
}
