package server

import (
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// LikePost toggles the caller's like on a post (protected)
func (s *Server) LikePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.engagementService.TogglePostLike(ctx, postID, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(result)
}

// BookmarkPost toggles the caller's bookmark on a post (protected)
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	result, err := s.engagementService.ToggleBookmark(ctx, postID, userID)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(result)
}

// FollowUser makes the caller follow the target user (protected)
func (s *Server) FollowUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.Follow(ctx, userID, followeeID); err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"following": true})
}

// UnfollowUser removes the caller's follow on the target user (protected)
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	followeeID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.Unfollow(ctx, userID, followeeID); err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.JSON(fiber.Map{"following": false})
}

// CreateAdminNotice persists an admin notice for every user (admin only)
func (s *Server) CreateAdminNotice(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	var req struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	sent, err := s.engagementService.AdminNotice(ctx, userID, req.Title, req.Message)
	if err != nil {
		return models.RespondWithError(c, statusForAppError(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"sent": sent})
}
