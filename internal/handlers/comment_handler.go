package handlers

import (
	"net/http"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments
type CommentHandler struct {
	comments *services.CommentService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// CommentView is a comment with its author inlined.
type CommentView struct {
	models.Comment
	Author models.UserCompact `json:"author"`
}

func newCommentView(c models.Comment) CommentView {
	v := CommentView{Comment: c}
	if c.Author != nil {
		v.Author = c.Author.ToCompact()
	}
	return v
}

// RegisterCommentRoutes registers mutating comment routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
}

// RegisterPublicRoutes registers comment listing
func (h *CommentHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
}

// CreateComment adds a comment and notifies the post author
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Add(c.Request().Context(), postID, userID, req.Content)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, newCommentView(*comment))
}

// GetCommentsByPostID pages through a post's comments, newest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	postID, err := parseIDParam(c, "id", "post")
	if err != nil {
		return err
	}
	authorID, err := queryUint(c, "author_id")
	if err != nil {
		return err
	}
	page, err := h.comments.ListByPost(c.Request().Context(), postID, authorID, c.QueryParam("cursor"), queryLimit(c))
	if err != nil {
		return err
	}
	views := make([]CommentView, len(page.Items))
	for i, cm := range page.Items {
		views[i] = newCommentView(cm)
	}
	return successWithCursor(c, views, page.NextCursor)
}

// UpdateComment edits a comment owned by the caller
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	commentID, err := parseIDParam(c, "id", "comment")
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	comment, err := h.comments.Update(c.Request().Context(), commentID, userID, req.Content)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, newCommentView(*comment))
}

// DeleteComment deletes a comment owned by the caller
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	commentID, err := parseIDParam(c, "id", "comment")
	if err != nil {
		return err
	}
	if err := h.comments.Delete(c.Request().Context(), commentID, userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
