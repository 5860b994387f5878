// Package localbiz is a client for the OpenWebNinja local business data API
// served through the MagicAPI gateway.
package localbiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

const (
	// ResultLimit caps the businesses returned per nearby search.
	ResultLimit = 20

	apiKeyHeader    = "x-magicapi-key"
	maxResponseBody = 4 << 20
)

// ErrNotConfigured is returned when the client has no API key.
var ErrNotConfigured = errors.New("business data api key not configured")

// HTTPError is a non-2xx reply from the API.
type HTTPError struct {
	Status int
	Body   string
}

func (e HTTPError) Error() string { return fmt.Sprintf("http %d: %s", e.Status, e.Body) }

// NearbyQuery scopes one search-nearby request.
type NearbyQuery struct {
	Query  string
	Lat    float64
	Lng    float64
	Radius int
}

// Client calls the autocomplete and search-nearby endpoints.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the default 15s-timeout client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpc = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether an API key is available.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// Autocomplete returns query suggestions for a text fragment.
func (c *Client) Autocomplete(ctx context.Context, input string) ([]string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("input", input)

	data, err := c.get(ctx, "/autocomplete", q)
	if err != nil {
		return nil, err
	}
	return decodeSuggestions(c.logger, data), nil
}

// SearchNearby returns up to ResultLimit businesses around a coordinate.
func (c *Client) SearchNearby(ctx context.Context, nq NearbyQuery) ([]models.Business, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	q := url.Values{}
	q.Set("query", nq.Query)
	q.Set("lat", strconv.FormatFloat(nq.Lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(nq.Lng, 'f', -1, 64))
	q.Set("radius", strconv.Itoa(nq.Radius))
	q.Set("extract_emails_and_contacts", "true")
	q.Set("limit", strconv.Itoa(ResultLimit))

	data, err := c.get(ctx, "/search-nearby", q)
	if err != nil {
		return nil, err
	}
	return decodeBusinesses(c.logger, data), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set(apiKeyHeader, c.apiKey)

	res, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, HTTPError{Status: res.StatusCode, Body: truncate(string(body), 200)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warn("business api returned malformed body", "path", path, "err", err)
		return nil, nil
	}
	return env.Data, nil
}

// decodeSuggestions keeps the string items and drops the rest.
func decodeSuggestions(logger *slog.Logger, data json.RawMessage) []string {
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, raw := range items {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			logger.Debug("skipping non-string suggestion", "err", err)
			continue
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// decodeBusinesses parses each record on its own so one malformed entry
// does not drop the whole page.
func decodeBusinesses(logger *slog.Logger, data json.RawMessage) []models.Business {
	var items []json.RawMessage
	if len(data) == 0 || json.Unmarshal(data, &items) != nil {
		return nil
	}
	out := make([]models.Business, 0, len(items))
	for _, raw := range items {
		var b models.Business
		if err := json.Unmarshal(raw, &b); err != nil {
			logger.Debug("skipping malformed business", "err", err)
			continue
		}
		out = append(out, b)
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
