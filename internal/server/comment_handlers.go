// Package server contains HTTP and WebSocket handlers for the engagement API.
package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetComments returns one page of a post's root comments with reply
// previews (public).
func (s *Server) GetComments(c *fiber.Ctx) error {
	ctx := c.UserContext()

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c)
	currentUserID := s.optionalUserID(c)

	page, err := s.commentService.ListRootComments(ctx, postID, p.Page, p.PageSize, currentUserID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(page)
}

// GetReplies returns one page of a comment's direct replies (public).
func (s *Server) GetReplies(c *fiber.Ctx) error {
	ctx := c.UserContext()

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	p := parsePagination(c)
	currentUserID := s.optionalUserID(c)

	page, err := s.commentService.ListReplies(ctx, commentID, p.Page, p.PageSize, currentUserID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(page)
}

// CreateComment creates a root comment or a reply (protected)
func (s *Server) CreateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		PostID          uint   `json:"post_id"`
		Content         string `json:"content"`
		ParentCommentID *uint  `json:"parent_comment_id"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.PostID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("post_id is required"))
	}

	created, err := s.commentService.CreateComment(ctx, service.CreateCommentInput{
		AuthorID:        userID,
		PostID:          req.PostID,
		Content:         req.Content,
		ParentCommentID: req.ParentCommentID,
	})
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(created.View())
}

// UpdateComment updates a comment's content (owner only)
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Content string `json:"content"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	updated, err := s.commentService.UpdateComment(ctx, service.UpdateCommentInput{
		AuthorID:  userID,
		CommentID: commentID,
		Content:   req.Content,
	})
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.JSON(updated.View())
}

// DeleteComment soft-deletes a comment and its replies (owner or moderator)
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.DeleteComment(ctx, commentID, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.JSON(result)
}

// LikeComment toggles the caller's like on a comment (protected)
func (s *Server) LikeComment(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.commentService.ToggleLike(ctx, commentID, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.JSON(result)
}

// ReportComment flags a comment for moderation (protected)
func (s *Server) ReportComment(c *fiber.Ctx) error {
	ctx := c.UserContext()

	commentID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	if err := s.commentService.ReportComment(ctx, commentID, req.Reason); err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}

	return c.JSON(fiber.Map{"message": "Comment reported"})
}
