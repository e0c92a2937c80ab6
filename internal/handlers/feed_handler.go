package handlers

import (
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	feed *services.FeedService
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(feed *services.FeedService) *FeedHandler {
	return &FeedHandler{feed: feed}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// GetFeed returns posts by followed users, newest first. Pass meta.next_cursor
// back as ?cursor= for the next page.
func (h *FeedHandler) GetFeed(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	page, err := h.feed.HomeFeed(c.Request().Context(), userID, c.QueryParam("cursor"), queryLimit(c))
	if err != nil {
		return err
	}
	return successWithCursor(c, page.Items, page.NextCursor)
}
