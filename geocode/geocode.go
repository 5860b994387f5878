// Package geocode resolves free-text places to coordinates with Nominatim.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

// ErrNotFound is returned when Nominatim has no match.
var ErrNotFound = errors.New("location not found")

type place struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
}

func New(baseURL, userAgent string) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpc:     &http.Client{Timeout: 15 * time.Second},
	}
}

// Lookup returns the best match for a place name.
func (c *Client) Lookup(ctx context.Context, query string) (models.Location, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return models.Location{}, err
	}
	// Nominatim's usage policy requires an identifying UA.
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	res, err := c.httpc.Do(req)
	if err != nil {
		return models.Location{}, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return models.Location{}, fmt.Errorf("nominatim: http %d", res.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(res.Body).Decode(&places); err != nil {
		return models.Location{}, fmt.Errorf("nominatim: decode: %w", err)
	}
	if len(places) == 0 {
		return models.Location{}, ErrNotFound
	}

	lat, err := strconv.ParseFloat(places[0].Lat, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim: bad lat %q: %w", places[0].Lat, err)
	}
	lng, err := strconv.ParseFloat(places[0].Lon, 64)
	if err != nil {
		return models.Location{}, fmt.Errorf("nominatim: bad lon %q: %w", places[0].Lon, err)
	}
	return models.Location{Lat: lat, Lng: lng, DisplayName: places[0].DisplayName}, nil
}
