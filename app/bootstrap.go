package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/chaupham1092/lcalbizfinder/app/config"
	"github.com/chaupham1092/lcalbizfinder/auth"
	"github.com/chaupham1092/lcalbizfinder/eventlog"
	"github.com/chaupham1092/lcalbizfinder/geocode"
	"github.com/chaupham1092/lcalbizfinder/localbiz"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

// Bootstrap opens every backing service named by cfg and returns a ready
// Server. The cleanup func closes what was opened.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup failed", "err", err)
			}
		}
	}

	store, err := quota.Open(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open quota store: %w", err)
	}
	closers = append(closers, store.Close)
	logger.Info("quota store ready", "backend", cfg.Quota.Backend)

	deps := Deps{
		Config:     cfg,
		Quota:      store,
		Businesses: localbiz.New(cfg.LocalBiz.BaseURL, cfg.LocalBiz.APIKey, localbiz.WithLogger(logger)),
		Geocoder:   geocode.New(cfg.Geocoder.BaseURL, cfg.Geocoder.UserAgent),
		Logger:     logger,
	}

	if err := cfg.ValidateBilling(); err != nil {
		logger.Warn("billing disabled", "err", err)
	}
	if cfg.Stripe.SecretKey != "" {
		deps.Checkout = InitStripe(cfg)
	}

	if cfg.RedisURL != "" {
		ledger, err := eventlog.NewRedisLedger(ctx, cfg.RedisURL, eventlog.DefaultTTL)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		closers = append(closers, ledger.Close)
		deps.Ledger = ledger
	}

	if cfg.QueueURL != "" {
		notifier, err := NewSQSNotifier(ctx, cfg.QueueURL)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		deps.Notifier = notifier
	}

	if cfg.Firebase.ProjectID != "" {
		verifier, err := auth.NewFirebaseVerifier(cfg.Firebase.ProjectID)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("init token verifier: %w", err)
		}
		deps.Verifier = verifier
	} else if !auth.AuthDisabled() {
		cleanup()
		return nil, nil, errors.New("FIREBASE_PROJECT_ID must be set unless AUTH_DISABLED=true")
	}

	return NewServer(deps), cleanup, nil
}
