package client

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/geocode"
	"github.com/chaupham1092/lcalbizfinder/localbiz"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

type recorder struct {
	alerts      []string
	loading     []bool
	businesses  []models.Business
	noResults   []string
	suggestions [][]string
	centered    []models.Location
}

func (r *recorder) Alert(msg string)                   { r.alerts = append(r.alerts, msg) }
func (r *recorder) Loading(on bool)                    { r.loading = append(r.loading, on) }
func (r *recorder) ShowBusinesses(b []models.Business) { r.businesses = b }
func (r *recorder) ShowNoResults(msg string)           { r.noResults = append(r.noResults, msg) }
func (r *recorder) ShowSuggestions(s []string)         { r.suggestions = append(r.suggestions, s) }
func (r *recorder) CenterMap(loc models.Location)      { r.centered = append(r.centered, loc) }

// fakeAPI returns one business per pin named after the pin's latitude,
// or fails on failLat.
type fakeAPI struct {
	configured  bool
	failLat     float64
	queries     []localbiz.NearbyQuery
	suggestions []string
	suggestErr  error
}

func (f *fakeAPI) Configured() bool { return f.configured }

func (f *fakeAPI) SearchNearby(_ context.Context, q localbiz.NearbyQuery) ([]models.Business, error) {
	f.queries = append(f.queries, q)
	if f.failLat != 0 && q.Lat == f.failLat {
		return nil, errors.New("upstream 500")
	}
	if q.Lat < 0 {
		return nil, nil
	}
	return []models.Business{{Name: "a", Latitude: q.Lat}, {Name: "b", Latitude: q.Lat}}, nil
}

func (f *fakeAPI) Autocomplete(context.Context, string) ([]string, error) {
	return f.suggestions, f.suggestErr
}

type fakeGeo struct {
	loc models.Location
	err error
}

func (f fakeGeo) Lookup(context.Context, string) (models.Location, error) { return f.loc, f.err }

type fakeStarter struct {
	err   error
	users []models.User
}

func (f *fakeStarter) StartCheckout(_ context.Context, u models.User) (models.CheckoutSession, error) {
	f.users = append(f.users, u)
	if f.err != nil {
		return models.CheckoutSession{}, f.err
	}
	return models.CheckoutSession{ID: "cs_1", URL: "https://checkout.test/cs_1"}, nil
}

type fakeRedirector struct {
	err      error
	sessions []models.CheckoutSession
}

func (f *fakeRedirector) Redirect(_ context.Context, sess models.CheckoutSession) error {
	f.sessions = append(f.sessions, sess)
	return f.err
}

type fixture struct {
	session  *Session
	store    *quota.MemoryStore
	api      *fakeAPI
	ui       *recorder
	starter  *fakeStarter
	redirect *fakeRedirector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    quota.NewMemoryStore(),
		api:      &fakeAPI{configured: true},
		ui:       &recorder{},
		starter:  &fakeStarter{},
		redirect: &fakeRedirector{},
	}
	s, err := NewSession(Config{
		Quota:      f.store,
		Businesses: f.api,
		Geocoder:   fakeGeo{loc: models.Location{Lat: 1, Lng: 2, DisplayName: "Somewhere"}},
		Checkout:   f.starter,
		Redirector: f.redirect,
		Presenter:  f.ui,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	f.session = s
	return f
}

func (f *fixture) dispatch(t *testing.T, events ...Event) error {
	t.Helper()
	var last error
	for _, ev := range events {
		last = f.session.Dispatch(context.Background(), ev)
	}
	return last
}

func (f *fixture) remaining(t *testing.T, userID string) int {
	t.Helper()
	rec, err := f.store.Get(context.Background(), userID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	return rec.SearchesRemaining
}

func signIn(id string) AuthStateChanged {
	return AuthStateChanged{User: &models.User{ID: id, IDToken: "tok-" + id}}
}

func TestSignInProvisionsOnce(t *testing.T) {
	f := newFixture(t)
	if err := f.dispatch(t, signIn("u1")); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if got := f.remaining(t, "u1"); got != models.DefaultSearches {
		t.Fatalf("remaining = %d, want %d", got, models.DefaultSearches)
	}

	if _, err := f.store.Consume(context.Background(), "u1"); err != nil {
		t.Fatalf("Consume: %v", err)
	}
	f.dispatch(t, AuthStateChanged{}, signIn("u1"))
	if got := f.remaining(t, "u1"); got != models.DefaultSearches-1 {
		t.Fatalf("second sign in reset quota: remaining = %d", got)
	}
}

func TestSearchChargesOncePerBatch(t *testing.T) {
	f := newFixture(t)
	err := f.dispatch(t,
		signIn("u1"),
		PinPlaced{Pin: models.Pin{Lat: 10, Lng: 1}},
		PinPlaced{Pin: models.Pin{Lat: 20, Lng: 1, Radius: 300}},
		PinPlaced{Pin: models.Pin{Lat: 30, Lng: 1}},
		QueryChanged{Text: "plumbers"},
		SearchRequested{},
	)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := f.remaining(t, "u1"); got != models.DefaultSearches-1 {
		t.Fatalf("remaining = %d, want %d", got, models.DefaultSearches-1)
	}
	if len(f.ui.businesses) != 6 {
		t.Fatalf("rendered %d businesses, want 6", len(f.ui.businesses))
	}
	for i, want := range []float64{10, 10, 20, 20, 30, 30} {
		if f.ui.businesses[i].Latitude != want {
			t.Fatalf("business %d from pin %v, want %v", i, f.ui.businesses[i].Latitude, want)
		}
	}
	if f.api.queries[0].Radius != models.DefaultRadius || f.api.queries[1].Radius != 300 {
		t.Fatalf("radii = %d,%d", f.api.queries[0].Radius, f.api.queries[1].Radius)
	}
	if len(f.ui.loading) != 2 || !f.ui.loading[0] || f.ui.loading[1] {
		t.Fatalf("loading = %v, want [true false]", f.ui.loading)
	}
}

func TestSearchFailureLeavesQuota(t *testing.T) {
	f := newFixture(t)
	f.api.failLat = 20
	err := f.dispatch(t,
		signIn("u1"),
		PinPlaced{Pin: models.Pin{Lat: 10, Lng: 1}},
		PinPlaced{Pin: models.Pin{Lat: 20, Lng: 1}},
		QueryChanged{Text: "plumbers"},
		SearchRequested{},
	)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := f.remaining(t, "u1"); got != models.DefaultSearches {
		t.Fatalf("remaining = %d, want unchanged", got)
	}
	if f.ui.businesses != nil {
		t.Fatalf("partial results rendered")
	}
	if len(f.ui.alerts) != 1 || f.ui.alerts[0] != "Failed to fetch businesses. Please try again." {
		t.Fatalf("alerts = %v", f.ui.alerts)
	}
	if last := f.ui.loading[len(f.ui.loading)-1]; last {
		t.Fatalf("loading left on")
	}
}

func TestSearchPreconditions(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		f := newFixture(t)
		f.dispatch(t, PinPlaced{Pin: models.Pin{Lat: 1, Lng: 1}}, QueryChanged{Text: "x"}, SearchRequested{})
		if f.ui.alerts[0] != "Please sign in to perform searches." {
			t.Fatalf("alerts = %v", f.ui.alerts)
		}
	})
	t.Run("no quota", func(t *testing.T) {
		f := newFixture(t)
		f.dispatch(t, signIn("u1"))
		if err := f.store.Grant(context.Background(), "u1", 0); err != nil {
			t.Fatalf("Grant: %v", err)
		}
		f.dispatch(t, PinPlaced{Pin: models.Pin{Lat: 1, Lng: 1}}, QueryChanged{Text: "x"}, SearchRequested{})
		if f.ui.alerts[0] != "No searches remaining. Please purchase more searches." {
			t.Fatalf("alerts = %v", f.ui.alerts)
		}
		if len(f.api.queries) != 0 {
			t.Fatalf("business api called with no quota")
		}
	})
	t.Run("no pins", func(t *testing.T) {
		f := newFixture(t)
		f.dispatch(t, signIn("u1"), QueryChanged{Text: "x"}, SearchRequested{})
		if f.ui.alerts[0] != "Please drop at least one pin on the map first." {
			t.Fatalf("alerts = %v", f.ui.alerts)
		}
	})
	t.Run("no query", func(t *testing.T) {
		f := newFixture(t)
		f.dispatch(t, signIn("u1"), PinPlaced{Pin: models.Pin{Lat: 1, Lng: 1}}, SearchRequested{})
		if f.ui.alerts[0] != "Please enter a search term (e.g., restaurants, plumbers)." {
			t.Fatalf("alerts = %v", f.ui.alerts)
		}
		if len(f.ui.loading) != 0 {
			t.Fatalf("loading shown for a failed precondition")
		}
	})
}

func TestSearchNoResults(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t, signIn("u1"), PinPlaced{Pin: models.Pin{Lat: -5, Lng: 1}}, QueryChanged{Text: "x"}, SearchRequested{})
	if len(f.ui.noResults) != 1 || f.ui.noResults[0] != "No businesses found in the selected areas." {
		t.Fatalf("noResults = %v", f.ui.noResults)
	}
	if got := f.remaining(t, "u1"); got != models.DefaultSearches-1 {
		t.Fatalf("remaining = %d", got)
	}
}

func TestPinsAndRadius(t *testing.T) {
	f := newFixture(t)
	f.dispatch(t,
		RadiusChanged{Meters: 2500},
		PinPlaced{Pin: models.Pin{Lat: 1, Lng: 1}},
		PinPlaced{Pin: models.Pin{Lat: 2, Lng: 2}},
		PinRemoved{ID: 1},
		RadiusChanged{Meters: 0},
	)
	pins := f.session.Pins()
	if len(pins) != 1 || pins[0].ID != 2 || pins[0].Radius != 2500 {
		t.Fatalf("pins = %+v", pins)
	}
	if f.session.Radius() != 2500 {
		t.Fatalf("out of range radius applied")
	}
}

func TestQuerySuggestions(t *testing.T) {
	f := newFixture(t)
	f.api.suggestions = []string{"plumbers near me"}

	f.dispatch(t, QueryChanged{Text: "pl"})
	f.dispatch(t, QueryChanged{Text: "plu"})
	f.api.suggestErr = errors.New("boom")
	f.dispatch(t, QueryChanged{Text: "plum"})

	if len(f.ui.suggestions) != 3 {
		t.Fatalf("suggestions calls = %d", len(f.ui.suggestions))
	}
	if f.ui.suggestions[0] != nil || len(f.ui.suggestions[1]) != 1 || f.ui.suggestions[2] != nil {
		t.Fatalf("suggestions = %v", f.ui.suggestions)
	}
	if len(f.ui.alerts) != 0 {
		t.Fatalf("autocomplete failure alerted: %v", f.ui.alerts)
	}
}

func TestLocationRequested(t *testing.T) {
	tests := []struct {
		name      string
		place     string
		geo       fakeGeo
		wantAlert string
	}{
		{"empty", "  ", fakeGeo{}, "Please enter a location."},
		{"not found", "Atlantis", fakeGeo{err: geocode.ErrNotFound}, "Location not found."},
		{"failure", "Paris", fakeGeo{err: errors.New("timeout")}, "Failed to fetch location. Please try again."},
		{"found", "Paris", fakeGeo{loc: models.Location{Lat: 48.8, Lng: 2.3}}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.session.cfg.Geocoder = tt.geo
			err := f.dispatch(t, LocationRequested{Place: tt.place})
			if tt.wantAlert == "" {
				if err != nil || len(f.ui.centered) != 1 {
					t.Fatalf("err = %v, centered = %v", err, f.ui.centered)
				}
				return
			}
			if err == nil || len(f.ui.alerts) != 1 || f.ui.alerts[0] != tt.wantAlert {
				t.Fatalf("err = %v, alerts = %v", err, f.ui.alerts)
			}
		})
	}
}

func TestPaymentRequested(t *testing.T) {
	t.Run("signed out", func(t *testing.T) {
		f := newFixture(t)
		if err := f.dispatch(t, PaymentRequested{}); err == nil {
			t.Fatalf("expected error")
		}
		if f.ui.alerts[0] != "Please sign in to make a payment." || len(f.starter.users) != 0 {
			t.Fatalf("alerts = %v, checkout calls = %d", f.ui.alerts, len(f.starter.users))
		}
	})
	t.Run("redirects", func(t *testing.T) {
		f := newFixture(t)
		if err := f.dispatch(t, signIn("u1"), PaymentRequested{}); err != nil {
			t.Fatalf("payment: %v", err)
		}
		if len(f.redirect.sessions) != 1 || f.redirect.sessions[0].ID != "cs_1" {
			t.Fatalf("redirects = %v", f.redirect.sessions)
		}
		if f.starter.users[0].IDToken != "tok-u1" {
			t.Fatalf("checkout user = %+v", f.starter.users[0])
		}
	})
	t.Run("redirect error", func(t *testing.T) {
		f := newFixture(t)
		f.redirect.err = errors.New("popup blocked")
		f.dispatch(t, signIn("u1"), PaymentRequested{})
		if len(f.ui.alerts) != 1 || f.ui.alerts[0] != "popup blocked" {
			t.Fatalf("alerts = %v", f.ui.alerts)
		}
		if got := f.remaining(t, "u1"); got != models.DefaultSearches {
			t.Fatalf("quota changed on failed payment: %d", got)
		}
	})
}

type chargeFailStore struct {
	*quota.MemoryStore
}

func (chargeFailStore) Consume(context.Context, string) (int, error) {
	return 0, errors.New("firestore unavailable")
}

func TestSearchChargeFailureStillRenders(t *testing.T) {
	store := quota.NewMemoryStore()
	api := &fakeAPI{configured: true}
	ui := &recorder{}
	s, err := NewSession(Config{
		Quota:      chargeFailStore{store},
		Businesses: api,
		Presenter:  ui,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	ctx := context.Background()
	for _, ev := range []Event{signIn("u1"), PinPlaced{Pin: models.Pin{Lat: 10, Lng: 1}}, QueryChanged{Text: "plumbers"}} {
		if err := s.Dispatch(ctx, ev); err != nil {
			t.Fatalf("Dispatch(%T): %v", ev, err)
		}
	}

	if err := s.Dispatch(ctx, SearchRequested{}); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ui.businesses) != 2 {
		t.Fatalf("rendered %d businesses, want 2", len(ui.businesses))
	}
	if len(ui.alerts) != 0 {
		t.Fatalf("alerts = %v", ui.alerts)
	}
}
