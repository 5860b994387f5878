// Package app wires shared HTTP routes for both local and Lambda execution.
package app

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/chaupham1092/lcalbizfinder/auth"
)

// Router builds the shared HTTP router for both local and Lambda execution.
func (s *Server) Router() (*gin.Engine, error) {
	disableAuth := auth.AuthDisabled()
	if s.verifier == nil && !disableAuth {
		return nil, errors.New("auth verifier not configured")
	}

	router := gin.New()
	router.Use(sloggin.NewWithConfig(s.logger, sloggin.Config{
		DefaultLevel:     slog.LevelInfo,
		ClientErrorLevel: slog.LevelWarn,
		ServerErrorLevel: slog.LevelError,
		WithRequestID:    true,
	}))
	router.Use(gin.Recovery())
	router.Use(cors.New(s.corsConfig()))

	router.GET("/health", Health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.POST("/api/stripe/webhook", s.StripeWebhook)

	protected := router.Group("/")
	protected.Use(auth.Middleware(s.verifier, auth.MiddlewareConfig{
		DisableAuth:     disableAuth,
		Logger:          s.logger,
		OnAuthenticated: s.ProvisionUserFromClaims,
	}))
	protected.GET("/me", s.Me)
	protected.POST("/api/billing/create-checkout-session", s.CreateCheckoutSession)
	protected.POST("/api/search", s.SearchBusinesses)
	protected.GET("/api/autocomplete", s.Autocomplete)
	protected.GET("/api/geocode", s.Geocode)

	return router, nil
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", idempotencyHeader},
		MaxAge:       12 * time.Hour,
	}
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
