package app

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/auth"
)

const (
	metadataUserID    = "userId"
	maxWebhookBytes   = int64(65536)
	idempotencyHeader = "Idempotency-Key"
)

type checkoutRequest struct {
	UserID string `json:"userId"`
}

// CreateCheckoutSession starts a one-time Stripe Checkout Session for the
// authenticated user.
func (s *Server) CreateCheckoutSession(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	// The body is optional; when it names a user it must be the caller.
	var req checkoutRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
	}
	if req.UserID != "" && req.UserID != claims.Subject {
		s.logger.Warn("checkout user mismatch", "sub", claims.Subject, "body_user", req.UserID)
		c.JSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
		return
	}

	if s.checkout == nil || s.cfg.Stripe.PriceID == "" || s.cfg.BaseURL == "" {
		s.logger.Error("missing Stripe config",
			"client", s.checkout != nil,
			"price_id", s.cfg.Stripe.PriceID != "",
			"base_url", s.cfg.BaseURL != "",
		)
		s.metrics.checkoutSessions.WithLabelValues("not_configured").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "billing not configured", "code": "billing_not_configured"})
		return
	}

	params := checkoutParams(s.cfg, claims.Subject)
	params.Context = c.Request.Context()
	key := c.GetHeader(idempotencyHeader)
	if key == "" {
		key = uuid.NewString()
	}
	params.SetIdempotencyKey(key)

	sess, err := s.checkout.New(params)
	if err != nil {
		s.logger.Error("stripe checkout session failed", "sub", claims.Subject, "err", err)
		s.metrics.checkoutSessions.WithLabelValues("error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create checkout session", "code": "checkout_session_failed"})
		return
	}

	s.logger.Info("checkout session created", "sub", claims.Subject, "session", sess.ID)
	s.metrics.checkoutSessions.WithLabelValues("created").Inc()
	c.JSON(http.StatusOK, models.CheckoutSession{ID: sess.ID, URL: sess.URL})
}

// StripeWebhook verifies Stripe notifications and resets the quota of the
// user named in a completed checkout. Other event types are acknowledged
// and ignored.
func (s *Server) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		s.logger.Warn("stripe webhook read failed", "err", err)
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	endpointSecret := s.cfg.Stripe.WebhookSecret
	if endpointSecret == "" {
		s.logger.Error("stripe webhook secret missing")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook not configured"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		body,
		c.GetHeader("Stripe-Signature"),
		endpointSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		s.logger.Warn("stripe webhook signature failed", "err", err)
		s.metrics.webhookEvents.WithLabelValues("unverified", "rejected").Inc()
		c.String(http.StatusBadRequest, "Webhook Error: %s", err.Error())
		return
	}

	ctx := c.Request.Context()
	eventType := string(event.Type)
	log := s.logger.With("event", event.ID, "type", eventType)

	if s.ledger != nil && event.ID != "" {
		seen, err := s.ledger.Seen(ctx, event.ID)
		if err != nil {
			log.Warn("event ledger lookup failed", "err", err)
		} else if seen {
			log.Info("duplicate stripe event acknowledged")
			s.metrics.webhookEvents.WithLabelValues(eventType, "duplicate").Inc()
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
	}

	outcome := "ignored"
	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			log.Error("stripe session unmarshal failed", "err", err)
			outcome = "invalid"
			break
		}
		userID := sess.Metadata[metadataUserID]
		if userID == "" {
			userID = sess.ClientReferenceID
		}
		if userID == "" {
			log.Error("stripe session missing user id", "session", sess.ID)
			outcome = "invalid"
			break
		}

		if err := s.quota.Grant(ctx, userID, models.GrantSearches); err != nil {
			log.Error("quota grant failed", "user", userID, "err", err)
			s.metrics.webhookEvents.WithLabelValues(eventType, "error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		outcome = "granted"
		s.metrics.quotaGrants.Inc()
		log.Info("quota granted", "user", userID, "searches", models.GrantSearches)

		s.notifyGrant(ctx, models.QuotaGrantMessage{
			UserID:            userID,
			EventID:           event.ID,
			CheckoutSessionID: sess.ID,
			SearchesRemaining: models.GrantSearches,
			GrantedAt:         time.Now().UTC(),
		})
	default:
		// Intentionally ignore unhandled events.
		log.Debug("stripe event ignored")
	}

	if s.ledger != nil && event.ID != "" {
		if err := s.ledger.Mark(ctx, event.ID); err != nil {
			log.Warn("event ledger write failed", "err", err)
		}
	}

	s.metrics.webhookEvents.WithLabelValues(eventType, outcome).Inc()
	c.JSON(http.StatusOK, gin.H{"received": true})
}
