// Package api exposes the order processor over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/andresuchdata/autopo-labels/internal/api/handlers"
	"github.com/andresuchdata/autopo-labels/internal/api/middleware"
)

type Services struct {
	Processor handlers.Processor
	Ledger    handlers.LedgerReader
}

func NewRouter(services *Services, allowedOrigins []string, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	if config, ok := corsConfig(allowedOrigins); ok {
		router.Use(cors.New(config))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil {
		if services.Processor != nil {
			triggerHandler := handlers.NewTriggerHandler(services.Processor, log)
			apiGroup.POST("/barcode_generator", triggerHandler.GenerateBarcodes)
		}

		if services.Ledger != nil {
			ledgerHandler := handlers.NewLedgerHandler(services.Ledger)
			apiGroup.GET("/ledger/:po", ledgerHandler.GetStatus)
		}
	}

	return router
}

// corsConfig reports false when no origin is configured; the trigger is
// normally called server to server.
func corsConfig(allowedOrigins []string) (cors.Config, bool) {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Sender"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins, allowAll := normalizeAllowedOrigins(allowedOrigins)
	switch {
	case allowAll:
		config.AllowOriginFunc = func(origin string) bool { return true }
	case len(origins) > 0:
		config.AllowOrigins = origins
	default:
		return config, false
	}
	return config, true
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
