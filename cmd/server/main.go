package main

import (
	"context"
	"log"

	"github.com/chaupham1092/lcalbizfinder/app"
	"github.com/chaupham1092/lcalbizfinder/app/config"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := app.NewLogger(cfg.Logs)

	srv, cleanup, err := app.Bootstrap(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to initialize server: %v", err)
	}
	defer cleanup()

	router, err := srv.Router()
	if err != nil {
		log.Fatalf("failed to initialize router: %v", err)
	}
	logger.Info("listening", "port", cfg.Port)
	if err := router.Run("0.0.0.0:" + cfg.Port); err != nil {
		logger.Error("server stopped", "err", err)
	}
}
