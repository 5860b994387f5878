package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/localbiz"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

type fakeSearcher struct {
	configured bool
	results    map[float64][]models.Business // keyed by pin latitude
	failAt     int                           // call index to fail, -1 for never
	calls      []localbiz.NearbyQuery
}

func (f *fakeSearcher) Configured() bool { return f.configured }

func (f *fakeSearcher) SearchNearby(_ context.Context, q localbiz.NearbyQuery) ([]models.Business, error) {
	f.calls = append(f.calls, q)
	if f.failAt == len(f.calls)-1 {
		return nil, errors.New("upstream 502")
	}
	return f.results[q.Lat], nil
}

func businesses(prefix string, n int) []models.Business {
	out := make([]models.Business, n)
	for i := range out {
		out[i] = models.Business{Name: fmt.Sprintf("%s-%d", prefix, i)}
	}
	return out
}

func newFixture(t *testing.T, remaining int) (*quota.MemoryStore, *fakeSearcher, *Orchestrator) {
	t.Helper()
	store := quota.NewMemoryStore()
	if remaining >= 0 {
		if err := store.Grant(context.Background(), "u1", remaining); err != nil {
			t.Fatalf("Grant error = %v", err)
		}
	}
	searcher := &fakeSearcher{
		configured: true,
		failAt:     -1,
		results: map[float64][]models.Business{
			1: businesses("a", 3),
			2: businesses("b", 0),
			3: businesses("c", 2),
		},
	}
	return store, searcher, NewOrchestrator(store, searcher, 0, nil)
}

func threePins() []models.Pin {
	return []models.Pin{{Lat: 1, Lng: 1, Radius: 500}, {Lat: 2, Lng: 2}, {Lat: 3, Lng: 3, Radius: 2000}}
}

func TestRunChargesOncePerBatch(t *testing.T) {
	store, searcher, o := newFixture(t, 5)

	res, err := o.Run(context.Background(), Request{UserID: "u1", Pins: threePins(), Query: "  cafes "})
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if len(res.Businesses) != 5 {
		t.Fatalf("results = %d, want 5 (sum of pins)", len(res.Businesses))
	}
	wantOrder := []string{"a-0", "a-1", "a-2", "c-0", "c-1"}
	for i, name := range wantOrder {
		if res.Businesses[i].Name != name {
			t.Fatalf("result %d = %s, want %s", i, res.Businesses[i].Name, name)
		}
	}
	if res.SearchesRemaining != 4 {
		t.Fatalf("SearchesRemaining = %d, want 4", res.SearchesRemaining)
	}
	rec, _ := store.Get(context.Background(), "u1")
	if rec.SearchesRemaining != 4 {
		t.Fatalf("stored remaining = %d, want 4", rec.SearchesRemaining)
	}
	if len(searcher.calls) != 3 {
		t.Fatalf("calls = %d, want 3", len(searcher.calls))
	}
	if searcher.calls[1].Radius != models.DefaultRadius || searcher.calls[0].Query != "cafes" {
		t.Fatalf("unexpected call %+v / %+v", searcher.calls[0], searcher.calls[1])
	}
}

func TestRunEmptyResultsStillCharges(t *testing.T) {
	store, _, o := newFixture(t, 2)
	res, err := o.Run(context.Background(), Request{UserID: "u1", Pins: []models.Pin{{Lat: 2, Lng: 2}}, Query: "x"})
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.Businesses == nil || len(res.Businesses) != 0 {
		t.Fatalf("Businesses = %v, want empty non-nil", res.Businesses)
	}
	rec, _ := store.Get(context.Background(), "u1")
	if rec.SearchesRemaining != 1 {
		t.Fatalf("stored remaining = %d, want 1", rec.SearchesRemaining)
	}
}

func TestRunFailureDoesNotCharge(t *testing.T) {
	store, searcher, o := newFixture(t, 5)
	searcher.failAt = 1

	res, err := o.Run(context.Background(), Request{UserID: "u1", Pins: threePins(), Query: "cafes"})
	if !errors.Is(err, ErrSearchFailed) {
		t.Fatalf("Run error = %v, want ErrSearchFailed", err)
	}
	if len(res.Businesses) != 0 {
		t.Fatalf("partial results returned: %d", len(res.Businesses))
	}
	if len(searcher.calls) != 2 {
		t.Fatalf("calls = %d, want 2 (abort after failure)", len(searcher.calls))
	}
	rec, _ := store.Get(context.Background(), "u1")
	if rec.SearchesRemaining != 5 {
		t.Fatalf("stored remaining = %d, want 5", rec.SearchesRemaining)
	}
}

func TestRunPreconditions(t *testing.T) {
	cases := []struct {
		name      string
		remaining int // -1 for no record
		req       Request
		unconfig  bool
		want      Reason
	}{
		{"unauthenticated", 5, Request{Pins: threePins(), Query: "x"}, false, ReasonUnauthenticated},
		{"no record", -1, Request{UserID: "u1", Pins: threePins(), Query: "x"}, false, ReasonNoQuota},
		{"zero quota", 0, Request{UserID: "u1", Pins: threePins(), Query: "x"}, false, ReasonNoQuota},
		{"not configured", 5, Request{UserID: "u1", Pins: threePins(), Query: "x"}, true, ReasonNotConfigured},
		{"no pins", 5, Request{UserID: "u1", Query: "x"}, false, ReasonNoPins},
		{"bad pin", 5, Request{UserID: "u1", Pins: []models.Pin{{Lat: 91, Lng: 0}}, Query: "x"}, false, ReasonInvalidPin},
		{"empty query", 5, Request{UserID: "u1", Pins: threePins(), Query: "   "}, false, ReasonNoQuery},
		{"quota checked before pins", 0, Request{UserID: "u1"}, false, ReasonNoQuota},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store, searcher, o := newFixture(t, tc.remaining)
			searcher.configured = !tc.unconfig
			writesBefore := store.Writes()

			_, err := o.Run(context.Background(), tc.req)
			var pe *PreconditionError
			if !errors.As(err, &pe) || pe.Reason != tc.want {
				t.Fatalf("Run error = %v, want precondition %s", err, tc.want)
			}
			if pe.Message() == "" {
				t.Fatalf("missing user-facing message for %s", tc.want)
			}
			if len(searcher.calls) != 0 {
				t.Fatalf("search requests issued: %d", len(searcher.calls))
			}
			if store.Writes() != writesBefore {
				t.Fatalf("store written on precondition failure")
			}
		})
	}
}

func TestZeroQuotaMessage(t *testing.T) {
	_, _, o := newFixture(t, 0)
	_, err := o.Run(context.Background(), Request{UserID: "u1", Pins: threePins(), Query: "x"})
	var pe *PreconditionError
	if !errors.As(err, &pe) {
		t.Fatalf("Run error = %v", err)
	}
	if pe.Message() != "No searches remaining. Please purchase more searches." {
		t.Fatalf("message = %q", pe.Message())
	}
}

type exhaustingQuota struct {
	*quota.MemoryStore
}

func (e exhaustingQuota) Consume(context.Context, string) (int, error) {
	return 0, quota.ErrExhausted
}

func TestRunQuotaSpentConcurrently(t *testing.T) {
	store, searcher, _ := newFixture(t, 1)
	o := NewOrchestrator(exhaustingQuota{store}, searcher, 0, nil)

	res, err := o.Run(context.Background(), Request{UserID: "u1", Pins: threePins(), Query: "x"})
	if err != nil {
		t.Fatalf("Run error = %v", err)
	}
	if res.SearchesRemaining != 0 || len(res.Businesses) != 5 {
		t.Fatalf("Run = %+v", res)
	}
}

type brokenQuota struct {
	*quota.MemoryStore
	getErr     error
	consumeErr error
}

func (b brokenQuota) Get(ctx context.Context, userID string) (models.QuotaRecord, error) {
	if b.getErr != nil {
		return models.QuotaRecord{}, b.getErr
	}
	return b.MemoryStore.Get(ctx, userID)
}

func (b brokenQuota) Consume(ctx context.Context, userID string) (int, error) {
	if b.consumeErr != nil {
		return 0, b.consumeErr
	}
	return b.MemoryStore.Consume(ctx, userID)
}

func TestRunChargeFailureKeepsResults(t *testing.T) {
	store, searcher, _ := newFixture(t, 3)
	o := NewOrchestrator(brokenQuota{MemoryStore: store, consumeErr: errors.New("firestore unavailable")}, searcher, 0, nil)

	res, err := o.Run(context.Background(), Request{UserID: "u1", Pins: threePins(), Query: "x"})
	if !errors.Is(err, ErrChargeFailed) {
		t.Fatalf("Run error = %v, want ErrChargeFailed", err)
	}
	if errors.Is(err, ErrSearchFailed) {
		t.Fatalf("charge failure reported as a search failure")
	}
	if len(res.Businesses) != 5 || res.SearchesRemaining != 3 {
		t.Fatalf("Run = %d businesses, %d remaining; want 5, 3", len(res.Businesses), res.SearchesRemaining)
	}
}

func TestCheckQuotaReadFailure(t *testing.T) {
	store, searcher, _ := newFixture(t, 3)
	o := NewOrchestrator(brokenQuota{MemoryStore: store, getErr: errors.New("deadline exceeded")}, searcher, 0, nil)

	_, err := o.Run(context.Background(), Request{UserID: "u1", Pins: threePins(), Query: "x"})
	if !errors.Is(err, ErrQuotaUnavailable) {
		t.Fatalf("Run error = %v, want ErrQuotaUnavailable", err)
	}
	var pe *PreconditionError
	if errors.As(err, &pe) {
		t.Fatalf("read failure reported as precondition %s", pe.Reason)
	}
	if len(searcher.calls) != 0 {
		t.Fatalf("search requests issued: %d", len(searcher.calls))
	}
}
