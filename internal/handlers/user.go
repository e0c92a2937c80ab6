package handlers

import (
	"net/http"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

const maxAvatarBytes = 5 << 20

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	accounts *services.AccountService
	follows  *services.FollowService
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts *services.AccountService, follows *services.FollowService) *UserHandler {
	return &UserHandler{accounts: accounts, follows: follows}
}

// RegisterProfileRoutes registers the caller's own profile routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.DELETE("/profile", h.DeleteUser)
	g.POST("/profile/avatar", h.UploadAvatar)
}

// RegisterPublicRoutes registers routes readable without a session
func (h *UserHandler) RegisterPublicRoutes(g *echo.Group) {
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)
}

// GetUser returns a user's profile with follow counts
func (h *UserHandler) GetUser(c echo.Context) error {
	id, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	profile, err := h.accounts.Profile(c.Request().Context(), getUserIDFromContext(c), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, profile)
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	profile, err := h.accounts.Profile(c.Request().Context(), userID, userID)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, profile)
}

// UpdateProfile updates the authenticated user's email or bio
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	var req models.UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	profile, err := h.accounts.UpdateProfile(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, profile)
}

// UploadAvatar accepts a multipart "avatar" file
func (h *UserHandler) UploadAvatar(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("avatar")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "avatar file is required")
	}
	if file.Size > maxAvatarBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, "avatar must be at most 5MB")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	profile, err := h.accounts.UploadAvatar(c.Request().Context(), userID, src, file.Filename)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, profile)
}

// DeleteUser deletes the authenticated user and everything they own
func (h *UserHandler) DeleteUser(c echo.Context) error {
	userID, err := requireUserID(c)
	if err != nil {
		return err
	}
	if err := h.accounts.DeleteAccount(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchUsers searches users by username or email
func (h *UserHandler) SearchUsers(c echo.Context) error {
	users, err := h.accounts.SearchUsers(c.Request().Context(), c.QueryParam("q"), queryLimit(c))
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, compactUsers(users))
}

func (h *UserHandler) GetFollowers(c echo.Context) error {
	id, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	users, err := h.follows.Followers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, compactUsers(users))
}

func (h *UserHandler) GetFollowing(c echo.Context) error {
	id, err := parseIDParam(c, "id", "user")
	if err != nil {
		return err
	}
	users, err := h.follows.Following(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, compactUsers(users))
}

func compactUsers(users []models.User) []models.UserCompact {
	out := make([]models.UserCompact, len(users))
	for i := range users {
		out[i] = users[i].ToCompact()
	}
	return out
}
