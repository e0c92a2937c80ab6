package router

import (
	"github.com/anonto42/social-graph/backend/internal/handlers"
	"github.com/anonto42/social-graph/backend/internal/middleware"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/internal/services"
	"github.com/anonto42/social-graph/backend/pkg/firebase"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/anonto42/social-graph/backend/pkg/realtime"
	"github.com/anonto42/social-graph/backend/pkg/search"
	"github.com/anonto42/social-graph/backend/pkg/storage"
	"github.com/labstack/echo/v4"
)

// Dependencies are the collaborators the routes are built from. Every
// field except Store and JWTSecret is optional; leave it nil to disable the
// feature it backs.
type Dependencies struct {
	Store     *repositories.Store
	JWTSecret string
	Broker    realtime.Broker
	Views     repositories.PostViewRepository
	Index     search.PostIndex
	Firebase  firebase.TokenVerifier
	Images    storage.ImageStorage
}

// SetupRoutes configures all application routes and injects dependencies
func SetupRoutes(e *echo.Echo, deps Dependencies) {
	e.GET("/health", handlers.HealthCheck)

	// --- Services ---
	notifications := services.NewNotificationService(deps.Store, deps.Broker)
	follows := services.NewFollowService(deps.Store, notifications)
	likes := services.NewLikeService(deps.Store, notifications)
	comments := services.NewCommentService(deps.Store, notifications)
	feed := services.NewFeedService(deps.Store, deps.Views)
	posts := services.NewPostService(deps.Store, deps.Views, deps.Index)
	accounts := services.NewAccountService(deps.Store, follows, services.NewTokenIssuer(deps.JWTSecret), deps.Firebase, deps.Images)

	authn := middleware.NewAuthenticator(deps.JWTSecret, deps.Firebase, deps.Store.Users)

	// --- Unprotected routes for authentication ---
	authGroup := e.Group("/api/v1/auth")
	handlers.NewAuthHandler(accounts).RegisterAuthRoutes(authGroup)
	logger.Debugf("Auth routes configured.")

	// Reads that anonymous callers may make; a token, when sent, personalizes the result.
	public := e.Group("/api/v1", authn.Optional())
	// Everything else requires a session.
	api := e.Group("/api/v1", authn.Required())

	userHandler := handlers.NewUserHandler(accounts, follows)
	userHandler.RegisterPublicRoutes(public)
	userHandler.RegisterProfileRoutes(api)
	logger.Debugf("User routes configured.")

	postHandler := handlers.NewPostHandler(posts)
	postHandler.RegisterPublicRoutes(public)
	postHandler.RegisterPostRoutes(api)
	logger.Debugf("Post routes configured.")

	commentHandler := handlers.NewCommentHandler(comments)
	commentHandler.RegisterPublicRoutes(public)
	commentHandler.RegisterCommentRoutes(api)
	logger.Debugf("Comment routes configured.")

	handlers.NewFollowHandler(follows).RegisterFollowRoutes(api)
	handlers.NewLikeHandler(likes).RegisterLikeRoutes(api)
	handlers.NewFeedHandler(feed).RegisterFeedRoutes(api)
	handlers.NewNotificationHandler(notifications, deps.Store).RegisterNotificationRoutes(api)
	logger.Debugf("Follow, like, feed and notification routes configured.")

	logger.Infof("All routes configured.")
}
