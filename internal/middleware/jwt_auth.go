package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/social-graph/backend/internal/models"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/pkg/firebase"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// ContextKey is where the caller's claims live on echo.Context.
const ContextKey = "user"

var errNoToken = errors.New("missing token")

// Authenticator resolves the caller from a bearer token. Local HS256 tokens
// are checked first; when Firebase is configured, a Firebase ID token is
// accepted as well and mapped to the linked local user.
type Authenticator struct {
	secret   []byte
	firebase firebase.TokenVerifier
	users    repositories.UserRepository
}

// NewAuthenticator builds an Authenticator. verifier may be nil.
func NewAuthenticator(secret string, verifier firebase.TokenVerifier, users repositories.UserRepository) *Authenticator {
	return &Authenticator{secret: []byte(secret), firebase: verifier, users: users}
}

// Required rejects requests without a valid token.
func (a *Authenticator) Required() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := a.authenticate(c)
			if err != nil {
				if errors.Is(err, errNoToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}
			c.Set(ContextKey, claims)
			return next(c)
		}
	}
}

// Optional sets the caller when a valid token is present and lets anonymous
// requests through. A token that is present but invalid is still rejected.
func (a *Authenticator) Optional() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := a.authenticate(c)
			switch {
			case errors.Is(err, errNoToken):
			case err != nil:
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			default:
				c.Set(ContextKey, claims)
			}
			return next(c)
		}
	}
}

func (a *Authenticator) authenticate(c echo.Context) (*models.JwtCustomClaims, error) {
	tokenString, err := bearerToken(c)
	if err != nil {
		return nil, err
	}
	claims, err := a.parseLocal(tokenString)
	if err == nil {
		return claims, nil
	}
	if a.firebase != nil {
		if claims, ferr := a.parseFirebase(c.Request().Context(), tokenString); ferr == nil {
			return claims, nil
		}
	}
	return nil, err
}

func (a *Authenticator) parseLocal(tokenString string) (*models.JwtCustomClaims, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == 0 {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// bearerToken reads "Authorization: Bearer <token>", falling back to the
// token query parameter for websocket clients that cannot set headers.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if t := c.QueryParam("token"); t != "" {
			return t, nil
		}
		return "", errNoToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
		return "", errors.New("invalid Authorization header format")
	}
	return parts[1], nil
}
