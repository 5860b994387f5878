package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

const checkoutPath = "/api/billing/create-checkout-session"

// CheckoutStarter asks the API for a new checkout session on behalf of user.
type CheckoutStarter interface {
	StartCheckout(ctx context.Context, user models.User) (models.CheckoutSession, error)
}

// HTTPCheckout calls the checkout endpoint with the user's ID token.
type HTTPCheckout struct {
	baseURL string
	httpc   *http.Client
}

func NewHTTPCheckout(baseURL string, httpc *http.Client) *HTTPCheckout {
	if httpc == nil {
		httpc = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPCheckout{baseURL: strings.TrimRight(baseURL, "/"), httpc: httpc}
}

func (h *HTTPCheckout) StartCheckout(ctx context.Context, user models.User) (models.CheckoutSession, error) {
	if user.ID == "" {
		return models.CheckoutSession{}, errors.New("checkout requires a signed-in user")
	}
	body, err := json.Marshal(map[string]string{"userId": user.ID})
	if err != nil {
		return models.CheckoutSession{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+checkoutPath, bytes.NewReader(body))
	if err != nil {
		return models.CheckoutSession{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", uuid.NewString())
	if user.IDToken != "" {
		req.Header.Set("Authorization", "Bearer "+user.IDToken)
	}

	resp, err := h.httpc.Do(req)
	if err != nil {
		return models.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return models.CheckoutSession{}, err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return models.CheckoutSession{}, fmt.Errorf("create checkout session: %s (status %d)", apiErr.Error, resp.StatusCode)
		}
		return models.CheckoutSession{}, fmt.Errorf("create checkout session: status %d", resp.StatusCode)
	}

	var sess models.CheckoutSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return models.CheckoutSession{}, fmt.Errorf("decode checkout session: %w", err)
	}
	if sess.ID == "" {
		return models.CheckoutSession{}, errors.New("checkout session response missing id")
	}
	return sess, nil
}
