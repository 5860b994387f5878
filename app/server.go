// Package app wires the HTTP API: checkout, payment webhooks, search and quota.
package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/chaupham1092/lcalbizfinder/app/config"
	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/auth"
	"github.com/chaupham1092/lcalbizfinder/eventlog"
	"github.com/chaupham1092/lcalbizfinder/quota"
	"github.com/chaupham1092/lcalbizfinder/search"
)

// BusinessAPI is the business data client the search endpoints use.
type BusinessAPI interface {
	search.Searcher
	Autocomplete(ctx context.Context, input string) ([]string, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (models.Location, error)
}

// Deps are the collaborators a Server is built from. Ledger and Notifier
// are optional.
type Deps struct {
	Config     *config.Config
	Quota      quota.Store
	Checkout   CheckoutSessions
	Businesses BusinessAPI
	Geocoder   Geocoder
	Ledger     eventlog.Ledger
	Notifier   GrantNotifier
	Verifier   *auth.Verifier
	Metrics    *Metrics
	Logger     *slog.Logger
}

// Server holds the application context shared by every handler.
type Server struct {
	cfg        *config.Config
	quota      quota.Store
	checkout   CheckoutSessions
	businesses BusinessAPI
	geocoder   Geocoder
	ledger     eventlog.Ledger
	notifier   GrantNotifier
	verifier   *auth.Verifier
	metrics    *Metrics
	logger     *slog.Logger
	search     *search.Orchestrator

	// provisioned caches user ids known to have a quota record.
	provisioned sync.Map
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Metrics == nil {
		d.Metrics = NewMetrics()
	}
	if d.Config == nil {
		d.Config = &config.Config{}
	}
	return &Server{
		cfg:        d.Config,
		quota:      d.Quota,
		checkout:   d.Checkout,
		businesses: d.Businesses,
		geocoder:   d.Geocoder,
		ledger:     d.Ledger,
		notifier:   d.Notifier,
		verifier:   d.Verifier,
		metrics:    d.Metrics,
		logger:     d.Logger,
		search:     search.NewOrchestrator(d.Quota, d.Businesses, d.Config.Search.Timeout, d.Logger),
	}
}
