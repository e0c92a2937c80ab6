package handlers

import (
	"net/http"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts
type PostHandler struct {
	posts *services.PostService
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(posts *services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

// RegisterPostRoutes registers mutating post routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.GET("/posts/:id/views", h.GetRecentViews)
}

// RegisterPublicRoutes registers post reads
func (h *PostHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.posts.Create(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, post)
}

// GetPost retrieves a post by ID and records the view
func (h *PostHandler) GetPost(c echo.Context) error {
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	post, err := h.posts.Get(c.Request().Context(), getUserIDFromContext(c), postID, c.RealIP())
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, post)
}

// GetPosts lists posts, filtered by author or tag, or searches them when
// ?search= is given
func (h *PostHandler) GetPosts(c echo.Context) error {
	viewerID := getUserIDFromContext(c)
	if q := c.QueryParam("search"); q != "" {
		posts, err := h.posts.Search(c.Request().Context(), viewerID, q, queryLimit(c))
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, posts)
	}

	authorID, err := queryUint(c, "author_id")
	if err != nil {
		return err
	}
	filter := repositories.PostFilter{AuthorID: authorID, Tag: c.QueryParam("tag")}
	page, err := h.posts.List(c.Request().Context(), viewerID, filter, c.QueryParam("cursor"), queryLimit(c))
	if err != nil {
		return err
	}
	return successWithCursor(c, page.Items, page.NextCursor)
}

// UpdatePost updates a post owned by the caller
func (h *PostHandler) UpdatePost(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.posts.Update(c.Request().Context(), userID, postID, req)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, post)
}

// DeletePost deletes a post owned by the caller
func (h *PostHandler) DeletePost(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.Request().Context(), userID, postID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// GetRecentViews lists the latest viewers of the caller's post
func (h *PostHandler) GetRecentViews(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	views, err := h.posts.RecentViews(c.Request().Context(), userID, postID, queryLimit(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, views)
}
