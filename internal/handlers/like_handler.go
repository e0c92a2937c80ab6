package handlers

import (
	"context"
	"net/http"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles like/unlike HTTP requests
type LikeHandler struct {
	likes *services.LikeService
}

type likeOp func(ctx context.Context, userID, postID uint) (models.LikeState, error)

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likes *services.LikeService) *LikeHandler {
	return &LikeHandler{likes: likes}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/like/toggle", h.ToggleLike)
	g.POST("/posts/:id/like", h.LikePost)
	g.DELETE("/posts/:id/like", h.UnlikePost)
}

// ToggleLike flips the caller's like and reports the new state
func (h *LikeHandler) ToggleLike(c echo.Context) error {
	return h.apply(c, h.likes.Toggle)
}

// LikePost likes a post; liking twice is harmless
func (h *LikeHandler) LikePost(c echo.Context) error {
	return h.apply(c, h.likes.Like)
}

// UnlikePost removes the caller's like if any
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	return h.apply(c, h.likes.Unlike)
}

func (h *LikeHandler) apply(c echo.Context, op likeOp) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	state, err := op(c.Request().Context(), userID, postID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, state)
}
