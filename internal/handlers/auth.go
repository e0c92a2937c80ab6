package handlers

import (
	"net/http"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/labstack/echo/v4"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	accounts *services.AccountService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/firebase-login", h.FirebaseLogin)
}

// Register creates a local account and returns a session token
func (h *AuthHandler) Register(c echo.Context) error {
	var req models.RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return success(c, http.StatusCreated, res)
}

// Login authenticates with username or email plus password
func (h *AuthHandler) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, res)
}

// FirebaseLogin exchanges a Firebase ID token for a local JWT
func (h *AuthHandler) FirebaseLogin(c echo.Context) error {
	var req models.FirebaseLoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	res, err := h.accounts.FirebaseLogin(c.Request().Context(), req.IDToken)
	if err != nil {
		return err
	}
	return success(c, http.StatusOK, res)
}
