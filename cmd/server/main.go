package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anonto42/social-graph/backend/internal/handlers"
	"github.com/anonto42/social-graph/backend/internal/repositories"
	"github.com/anonto42/social-graph/backend/internal/router"
	"github.com/anonto42/social-graph/backend/pkg/config"
	"github.com/anonto42/social-graph/backend/pkg/firebase"
	"github.com/anonto42/social-graph/backend/pkg/logger"
	"github.com/anonto42/social-graph/backend/pkg/realtime"
	"github.com/anonto42/social-graph/backend/pkg/search"
	"github.com/anonto42/social-graph/backend/pkg/storage"
	"github.com/anonto42/social-graph/backend/validators"
	"github.com/labstack/echo/v4"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.Setup(os.Stdout, cfg.IsProduction())
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database connections
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize databases: %v", err)
	}
	defer db.CloseDB()

	if err := repositories.AutoMigrate(db.Postgres); err != nil {
		log.Fatalf("Failed to auto migrate models: %v", err)
	}
	log.Info("PostgreSQL auto-migrations completed.")

	ctx := context.Background()
	deps := router.Dependencies{
		Store:     repositories.NewStore(db.Postgres),
		JWTSecret: cfg.JWTSecret,
	}

	if db.Redis != nil {
		deps.Broker = realtime.NewRedisBroker(db.Redis)
	} else {
		deps.Broker = realtime.NewMemoryBroker()
		log.Info("Using in-process notification broker.")
	}

	if db.Mongo != nil {
		views := repositories.NewMongoPostViewRepository(db.Mongo.Database(cfg.MongoDatabase))
		if err := views.EnsureIndexes(ctx); err != nil {
			log.Fatalf("Failed to create post view indexes: %v", err)
		}
		deps.Views = views
	}

	if cfg.FirebaseCredentialsPath != "" {
		firebaseApp, err := firebase.InitFirebase(ctx, cfg.FirebaseCredentialsPath)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		deps.Firebase = firebaseApp.AuthClient
	} else {
		log.Info("FIREBASE_CREDENTIALS_PATH not set, Firebase login disabled.")
	}

	if cfg.MeiliHost != "" {
		index := search.NewMeiliPostIndex(cfg.MeiliHost, cfg.MeiliMasterKey)
		search.Configure(index)
		deps.Index = index
	} else {
		log.Info("MEILISEARCH_HOST not set, post search uses the database.")
	}

	if cfg.CloudinaryURL != "" {
		images, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			log.Fatalf("Failed to initialize Cloudinary: %v", err)
		}
		deps.Images = images
	} else {
		log.Info("CLOUDINARY_URL not set, avatar upload disabled.")
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Logger = log
	e.Validator = validators.NewValidator()
	e.HTTPErrorHandler = handlers.ErrorHandler

	config.SetupMiddleware(e, cfg)
	router.SetupRoutes(e, deps)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Graceful shutdown failed: %v", err)
	}
}
