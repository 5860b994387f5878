package app

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v79"

	"github.com/chaupham1092/lcalbizfinder/app/config"
	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/auth"
	"github.com/chaupham1092/lcalbizfinder/localbiz"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

const testWebhookSecret = "whsec_test"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		BaseURL: "https://maps.example.test",
		Stripe: config.StripeConfig{
			SecretKey:     "sk_test",
			WebhookSecret: testWebhookSecret,
			PriceID:       "price_test",
		},
		Search: config.SearchConfig{Timeout: 5 * time.Second},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCheckout struct {
	params []*stripe.CheckoutSessionParams
	err    error
}

func (f *fakeCheckout) New(p *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = append(f.params, p)
	if f.err != nil {
		return nil, f.err
	}
	return &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"}, nil
}

type fakeBusinesses struct {
	configured  bool
	results     []models.Business
	err         error
	suggestions []string
	calls       int
}

func (f *fakeBusinesses) Configured() bool { return f.configured }

func (f *fakeBusinesses) SearchNearby(_ context.Context, _ localbiz.NearbyQuery) ([]models.Business, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeBusinesses) Autocomplete(_ context.Context, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

type fakeGeocoder struct {
	loc models.Location
	err error
}

func (f fakeGeocoder) Lookup(_ context.Context, _ string) (models.Location, error) {
	return f.loc, f.err
}

type fakeNotifier struct {
	msgs []models.QuotaGrantMessage
	err  error
}

func (f *fakeNotifier) NotifyGrant(_ context.Context, msg models.QuotaGrantMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

// failingStore errors on Grant while delegating everything else.
type failingStore struct {
	*quota.MemoryStore
}

func (failingStore) Grant(context.Context, string, int) error {
	return errors.New("store unavailable")
}

func newTestServer(t *testing.T, d Deps) *Server {
	t.Helper()
	if d.Config == nil {
		d.Config = testConfig()
	}
	if d.Quota == nil {
		d.Quota = quota.NewMemoryStore()
	}
	if d.Logger == nil {
		d.Logger = quietLogger()
	}
	return NewServer(d)
}

// withUser mounts h behind a stand-in for the auth middleware.
func withUser(userID string, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			ctx := auth.WithClaims(c.Request.Context(), &auth.Claims{Subject: userID, Email: userID + "@example.test"})
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	})
	r.Any("/", h)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

// signPayload builds a Stripe-Signature header for payload.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, id, typ string, object map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(map[string]any{
		"id":     id,
		"object": "event",
		"type":   typ,
		"data":   map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

func postWebhook(s *Server, payload []byte, signature string) *httptest.ResponseRecorder {
	r := gin.New()
	r.POST("/api/stripe/webhook", s.StripeWebhook)
	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signature)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
