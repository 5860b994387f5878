// Package client holds the map client's state and turns user actions into
// quota checks, business searches and checkout redirects.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/geocode"
	"github.com/chaupham1092/lcalbizfinder/search"
)

const (
	minSuggestInput = 3

	msgSignInToPay     = "Please sign in to make a payment."
	msgNoBusinesses    = "No businesses found in the selected areas."
	msgEnterLocation   = "Please enter a location."
	msgLocationMissing = "Location not found."
	msgLocationFailed  = "Failed to fetch location. Please try again."
)

// QuotaStore is what the client reads and writes on the user's quota.
type QuotaStore interface {
	search.Quota
	Provision(ctx context.Context, userID string, initial int) (bool, error)
}

// BusinessAPI searches and suggests through the business data service.
type BusinessAPI interface {
	search.Searcher
	Autocomplete(ctx context.Context, input string) ([]string, error)
}

type Geocoder interface {
	Lookup(ctx context.Context, query string) (models.Location, error)
}

// Config carries a Session's collaborators. Geocoder, Checkout and
// Redirector may be nil when the matching events are never sent.
type Config struct {
	Quota      QuotaStore
	Businesses BusinessAPI
	Geocoder   Geocoder
	Checkout   CheckoutStarter
	Redirector Redirector
	Presenter  Presenter
	Timeout    time.Duration
	Logger     *slog.Logger
}

// PlacedPin is a pin with the id it was given when placed.
type PlacedPin struct {
	ID int
	models.Pin
}

// Session is the client's application context: the signed-in user, the
// placed pins, the query and the radius for new pins.
type Session struct {
	cfg    Config
	search *search.Orchestrator
	logger *slog.Logger

	mu     sync.Mutex
	user   *models.User
	pins   []PlacedPin
	nextID int
	query  string
	radius int
}

func NewSession(cfg Config) (*Session, error) {
	if cfg.Quota == nil {
		return nil, errors.New("client: quota store is required")
	}
	if cfg.Presenter == nil {
		return nil, errors.New("client: presenter is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Session{
		cfg:    cfg,
		search: search.NewOrchestrator(cfg.Quota, cfg.Businesses, cfg.Timeout, cfg.Logger),
		logger: cfg.Logger,
		nextID: 1,
		radius: models.DefaultRadius,
	}, nil
}

// Dispatch handles one event. Failures the user should see are rendered
// through the Presenter and also returned.
func (s *Session) Dispatch(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case AuthStateChanged:
		return s.onAuthStateChanged(ctx, e)
	case PinPlaced:
		s.onPinPlaced(e)
	case PinRemoved:
		s.onPinRemoved(e)
	case RadiusChanged:
		s.onRadiusChanged(e)
	case QueryChanged:
		s.onQueryChanged(ctx, e)
	case LocationRequested:
		return s.onLocationRequested(ctx, e)
	case SearchRequested:
		return s.onSearchRequested(ctx)
	case PaymentRequested:
		return s.onPaymentRequested(ctx)
	default:
		return fmt.Errorf("client: unhandled event %T", ev)
	}
	return nil
}

func (s *Session) onAuthStateChanged(ctx context.Context, e AuthStateChanged) error {
	s.mu.Lock()
	if e.User == nil || e.User.ID == "" {
		s.user = nil
		s.mu.Unlock()
		return nil
	}
	u := *e.User
	s.user = &u
	s.mu.Unlock()

	created, err := s.cfg.Quota.Provision(ctx, u.ID, models.DefaultSearches)
	if err != nil {
		s.logger.Error("quota provisioning failed", "user", u.ID, "err", err)
		return fmt.Errorf("provision quota: %w", err)
	}
	if created {
		s.logger.Info("quota provisioned", "user", u.ID)
	}
	return nil
}

func (s *Session) onPinPlaced(e PinPlaced) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := e.Pin
	if p.Radius == 0 {
		p.Radius = s.radius
	}
	s.pins = append(s.pins, PlacedPin{ID: s.nextID, Pin: p})
	s.nextID++
}

func (s *Session) onPinRemoved(e PinRemoved) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.pins {
		if p.ID == e.ID {
			s.pins = append(s.pins[:i], s.pins[i+1:]...)
			return
		}
	}
}

func (s *Session) onRadiusChanged(e RadiusChanged) {
	if e.Meters < models.MinRadius || e.Meters > models.MaxRadius {
		s.logger.Warn("radius out of range ignored", "meters", e.Meters)
		return
	}
	s.mu.Lock()
	s.radius = e.Meters
	s.mu.Unlock()
}

func (s *Session) onQueryChanged(ctx context.Context, e QueryChanged) {
	s.mu.Lock()
	s.query = e.Text
	s.mu.Unlock()

	input := strings.TrimSpace(e.Text)
	if len([]rune(input)) < minSuggestInput || s.cfg.Businesses == nil || !s.cfg.Businesses.Configured() {
		s.cfg.Presenter.ShowSuggestions(nil)
		return
	}
	suggestions, err := s.cfg.Businesses.Autocomplete(ctx, input)
	if err != nil {
		s.logger.Warn("autocomplete failed", "err", err)
		s.cfg.Presenter.ShowSuggestions(nil)
		return
	}
	s.cfg.Presenter.ShowSuggestions(suggestions)
}

func (s *Session) onLocationRequested(ctx context.Context, e LocationRequested) error {
	place := strings.TrimSpace(e.Place)
	if place == "" {
		return s.alert(msgEnterLocation, errors.New("empty location"))
	}
	if s.cfg.Geocoder == nil {
		return s.alert(msgLocationFailed, errors.New("geocoder not configured"))
	}
	loc, err := s.cfg.Geocoder.Lookup(ctx, place)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			return s.alert(msgLocationMissing, err)
		}
		s.logger.Error("geocode failed", "place", place, "err", err)
		return s.alert(msgLocationFailed, err)
	}
	s.cfg.Presenter.CenterMap(loc)
	return nil
}

func (s *Session) onSearchRequested(ctx context.Context) error {
	req := s.searchRequest()

	if _, err := s.search.Check(ctx, req); err != nil {
		var pe *search.PreconditionError
		if errors.As(err, &pe) {
			return s.alert(pe.Message(), err)
		}
		s.logger.Error("search precondition failed", "err", err)
		return s.alert(search.QuotaUnavailableMessage, err)
	}

	s.cfg.Presenter.Loading(true)
	res, err := s.search.Run(ctx, req)
	s.cfg.Presenter.Loading(false)
	if errors.Is(err, search.ErrChargeFailed) {
		// Results were fetched; only the decrement failed.
		s.logger.Error("search charge failed", "user", req.UserID, "err", err)
		err = nil
	}
	if err != nil {
		var pe *search.PreconditionError
		if errors.As(err, &pe) {
			return s.alert(pe.Message(), err)
		}
		return s.alert(search.FailureMessage, err)
	}

	if len(res.Businesses) == 0 {
		s.cfg.Presenter.ShowNoResults(msgNoBusinesses)
		return nil
	}
	s.cfg.Presenter.ShowBusinesses(res.Businesses)
	return nil
}

func (s *Session) onPaymentRequested(ctx context.Context) error {
	user, ok := s.User()
	if !ok {
		return s.alert(msgSignInToPay, errors.New("not signed in"))
	}
	if s.cfg.Checkout == nil || s.cfg.Redirector == nil {
		return s.alert("Payment is not available right now.", errors.New("checkout not configured"))
	}

	sess, err := s.cfg.Checkout.StartCheckout(ctx, user)
	if err != nil {
		s.logger.Error("checkout session failed", "user", user.ID, "err", err)
		return s.alert(err.Error(), err)
	}
	if err := s.cfg.Redirector.Redirect(ctx, sess); err != nil {
		s.logger.Error("checkout redirect failed", "user", user.ID, "session", sess.ID, "err", err)
		return s.alert(err.Error(), err)
	}
	return nil
}

func (s *Session) alert(msg string, err error) error {
	s.cfg.Presenter.Alert(msg)
	return err
}

func (s *Session) searchRequest() search.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := search.Request{Query: s.query}
	if s.user != nil {
		req.UserID = s.user.ID
	}
	req.Pins = make([]models.Pin, len(s.pins))
	for i, p := range s.pins {
		req.Pins[i] = p.Pin
	}
	return req
}

// User returns the signed-in user.
func (s *Session) User() (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Pins returns a copy of the placed pins in placement order.
func (s *Session) Pins() []PlacedPin {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlacedPin(nil), s.pins...)
}

// Radius is the radius applied to pins placed without one.
func (s *Session) Radius() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.radius
}
