package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/insight-board-be/internal/api"
	"github.com/isdelr/insight-board-be/internal/auth"
	"github.com/isdelr/insight-board-be/internal/config"
	"github.com/isdelr/insight-board-be/internal/database"
	"github.com/isdelr/insight-board-be/internal/logger"
	"github.com/isdelr/insight-board-be/internal/monitoring"
	"github.com/isdelr/insight-board-be/internal/services"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Ensure the upload staging directory exists
	if err := os.MkdirAll(cfg.UploadPath, 0755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create upload staging directory")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Token manager gets the signing secret injected here; nothing else
	// reads it from the environment.
	tokens := auth.NewManager(cfg.JWTSecret)

	// Set up services
	eventService := services.NewEventService(db)
	userService := services.NewUserService(db, eventService)
	uploadService := services.NewUploadService(db, eventService, cfg.UploadPath)

	// Set up and run the background staging janitor
	janitor, err := monitoring.NewJanitor(uploadService, cfg.JanitorSchedule, cfg.UploadRetention)
	if err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.JanitorSchedule).Msg("Invalid janitor schedule")
	}
	go janitor.Run()

	// Set up router
	router := api.NewRouter(tokens, userService, uploadService, cfg.EnableDevRoutes)
	if cfg.EnableDevRoutes {
		log.Warn().Msg("Development routes are enabled; do not run this way in production")
	}

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	janitor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
