package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/autopo-labels/internal/api"
	"github.com/andresuchdata/autopo-labels/internal/app"
	"github.com/andresuchdata/autopo-labels/internal/config"
	"github.com/andresuchdata/autopo-labels/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.LogLevel)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := cfg.Validate(); err != nil {
		logger.Log.Fatal().Err(err).Msg("Invalid configuration")
	}

	components, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize components")
	}
	defer components.Close()

	logger.Log.Info().
		Str("ledger", cfg.Ledger.Backend).
		Str("transport", cfg.Mail.Transport).
		Bool("verification_mode", cfg.Recipients.VerificationMode).
		Msg("Components ready")

	router := api.NewRouter(&api.Services{
		Processor: components.Processor,
		Ledger:    components.Ledger,
	}, cfg.Server.AllowedOrigins, logger.Component("http"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// In-flight invocations may still be dispatching; give them the write timeout.
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.WriteTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
