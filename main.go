package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isdelr/devsec-blog-be/internal/api"
	"github.com/isdelr/devsec-blog-be/internal/auth"
	"github.com/isdelr/devsec-blog-be/internal/config"
	"github.com/isdelr/devsec-blog-be/internal/database"
	"github.com/isdelr/devsec-blog-be/internal/logger"
	"github.com/isdelr/devsec-blog-be/internal/services"
	"github.com/isdelr/devsec-blog-be/internal/validation"
	"github.com/isdelr/devsec-blog-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info", false)
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.LogLevel, cfg.IsDevelopment())
	if cfg.UsingDevSecret {
		log.Warn().Msg("JWT_SECRET is not set, using the development secret. Never run like this in production.")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up the live activity hub
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := websocket.NewHub()
	go hub.Run(hubCtx)

	// Set up services
	validate := validation.New()
	tokens := auth.NewTokenManager(cfg.JWTSecret)
	eventService := services.NewEventService(db, hub)
	userService := services.NewUserService(db, auth.NewHasher(auth.DefaultHashCost), tokens, validate, eventService)
	postService := services.NewPostService(db, validate, eventService)
	commentService := services.NewCommentService(db, validate, eventService)
	dashboardService := services.NewDashboardService(db, eventService)
	uploadService, err := services.NewUploadService(cfg.UploadDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.UploadDir).Msg("Failed to initialize upload storage")
	}

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Tokens:         tokens,
		Users:          userService,
		Posts:          postService,
		Comments:       commentService,
		Uploads:        uploadService,
		Events:         eventService,
		Dashboard:      dashboardService,
		DB:             db,
		Hub:            hub,
		UploadDir:      uploadService.Dir(),
		AllowedOrigins: cfg.AllowedOrigins,
		Debug:          cfg.IsDevelopment(),
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Str("env", cfg.AppEnv).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ListenAndServe failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	stopHub() // Close activity feed connections

	log.Info().Msg("Server exiting")
}
