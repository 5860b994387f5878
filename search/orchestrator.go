// Package search runs a quota-charged business search across the placed pins.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/localbiz"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

// Quota is the part of the quota store a search needs.
type Quota interface {
	Get(ctx context.Context, userID string) (models.QuotaRecord, error)
	Consume(ctx context.Context, userID string) (int, error)
}

// Searcher queries businesses around one pin.
type Searcher interface {
	Configured() bool
	SearchNearby(ctx context.Context, q localbiz.NearbyQuery) ([]models.Business, error)
}

type Request struct {
	UserID string
	Pins   []models.Pin
	Query  string
}

type Result struct {
	Businesses        []models.Business
	SearchesRemaining int
}

type Orchestrator struct {
	quota    Quota
	searcher Searcher
	timeout  time.Duration
	logger   *slog.Logger
}

func NewOrchestrator(q Quota, s Searcher, timeout time.Duration, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{quota: q, searcher: s, timeout: timeout, logger: logger}
}

// Check runs the preconditions in order and returns the first failure.
// It returns the user's current quota record when every check passes.
func (o *Orchestrator) Check(ctx context.Context, req Request) (models.QuotaRecord, error) {
	if req.UserID == "" {
		return models.QuotaRecord{}, precondition(ReasonUnauthenticated)
	}

	rec, err := o.quota.Get(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, quota.ErrNotFound) {
			return models.QuotaRecord{}, precondition(ReasonNoQuota)
		}
		return models.QuotaRecord{}, fmt.Errorf("%w: %w", ErrQuotaUnavailable, err)
	}
	if rec.SearchesRemaining <= 0 {
		return rec, precondition(ReasonNoQuota)
	}

	if o.searcher == nil || !o.searcher.Configured() {
		return rec, precondition(ReasonNotConfigured)
	}

	if len(req.Pins) == 0 {
		return rec, precondition(ReasonNoPins)
	}
	for _, p := range req.Pins {
		if !withDefaultRadius(p).Valid() {
			return rec, precondition(ReasonInvalidPin)
		}
	}

	if strings.TrimSpace(req.Query) == "" {
		return rec, precondition(ReasonNoQuery)
	}
	return rec, nil
}

// Run checks preconditions, searches each pin in order and charges one
// search once every pin succeeded. A failed pin aborts the batch without
// charging and without partial results. A failed charge still returns the
// results, with the pre-charge count, alongside ErrChargeFailed.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	rec, err := o.Check(ctx, req)
	if err != nil {
		return Result{}, err
	}

	businesses, err := o.fetchAll(ctx, req)
	if err != nil {
		return Result{}, err
	}

	remaining, err := o.quota.Consume(ctx, req.UserID)
	switch {
	case err == nil:
	case errors.Is(err, quota.ErrExhausted):
		// A concurrent batch spent the last search after our check.
		o.logger.Warn("quota exhausted during search", "user", req.UserID, "checked", rec.SearchesRemaining)
		remaining = 0
	default:
		o.logger.Error("quota charge failed", "user", req.UserID, "err", err)
		res := Result{Businesses: businesses, SearchesRemaining: rec.SearchesRemaining}
		return res, fmt.Errorf("%w: %w", ErrChargeFailed, err)
	}

	return Result{Businesses: businesses, SearchesRemaining: remaining}, nil
}

func (o *Orchestrator) fetchAll(ctx context.Context, req Request) ([]models.Business, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	query := strings.TrimSpace(req.Query)
	all := []models.Business{}
	for i, p := range req.Pins {
		p = withDefaultRadius(p)
		found, err := o.searcher.SearchNearby(ctx, localbiz.NearbyQuery{
			Query:  query,
			Lat:    p.Lat,
			Lng:    p.Lng,
			Radius: p.Radius,
		})
		if err != nil {
			o.logger.Error("business search failed", "user", req.UserID, "pin", i, "err", err)
			return nil, fmt.Errorf("%w: pin %d: %w", ErrSearchFailed, i, err)
		}
		all = append(all, found...)
	}
	o.logger.Info("business search completed", "user", req.UserID, "pins", len(req.Pins), "results", len(all))
	return all, nil
}

func withDefaultRadius(p models.Pin) models.Pin {
	if p.Radius == 0 {
		p.Radius = models.DefaultRadius
	}
	return p
}
