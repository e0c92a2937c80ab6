package handlers

import (
	"net/http"

	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FollowHandler handles follow/unfollow HTTP requests
type FollowHandler struct {
	follows *services.FollowService
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(follows *services.FollowService) *FollowHandler {
	return &FollowHandler{follows: follows}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
}

// FollowUser follows a user. Following someone already followed succeeds
// with created=false.
func (h *FollowHandler) FollowUser(c echo.Context) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}

	created, err := h.follows.Follow(c.Request().Context(), currentUserID, targetID)
	if err != nil {
		return err
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return success(c, status, echo.Map{"following": true, "created": created})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	currentUserID, err := requireUserID(c)
	if err != nil {
		return err
	}
	targetID, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}

	if err := h.follows.Unfollow(c.Request().Context(), currentUserID, targetID); err != nil {
		return err
	}
	return success(c, http.StatusOK, echo.Map{"following": false})
}
