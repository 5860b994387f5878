package app

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/auth"
	"github.com/chaupham1092/lcalbizfinder/geocode"
	"github.com/chaupham1092/lcalbizfinder/search"
)

// minAutocompleteInput matches the client, which stays quiet below three characters.
const minAutocompleteInput = 3

var preconditionStatus = map[search.Reason]int{
	search.ReasonUnauthenticated: http.StatusUnauthorized,
	search.ReasonNoQuota:         http.StatusPaymentRequired,
	search.ReasonNotConfigured:   http.StatusServiceUnavailable,
	search.ReasonNoPins:          http.StatusBadRequest,
	search.ReasonInvalidPin:      http.StatusBadRequest,
	search.ReasonNoQuery:         http.StatusBadRequest,
}

// SearchBusinesses runs one quota-charged search across the posted pins.
func (s *Server) SearchBusinesses(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	var req models.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := s.search.Run(c.Request.Context(), search.Request{
		UserID: claims.Subject,
		Pins:   req.Pins,
		Query:  req.Query,
	})
	outcome := "ok"
	if errors.Is(err, search.ErrChargeFailed) {
		// The batch succeeded; the results are still served.
		s.logger.Error("search charge failed", "user", claims.Subject, "err", err)
		outcome = "charge_failed"
		err = nil
	}
	if err != nil {
		var pe *search.PreconditionError
		switch {
		case errors.As(err, &pe):
			s.metrics.searches.WithLabelValues(string(pe.Reason)).Inc()
			c.JSON(preconditionStatus[pe.Reason], gin.H{"error": pe.Message(), "code": string(pe.Reason)})
		case errors.Is(err, search.ErrSearchFailed):
			s.metrics.searches.WithLabelValues("upstream_error").Inc()
			c.JSON(http.StatusBadGateway, gin.H{"error": search.FailureMessage, "code": "search_failed"})
		case errors.Is(err, search.ErrQuotaUnavailable):
			s.logger.Error("search quota read failed", "user", claims.Subject, "err", err)
			s.metrics.searches.WithLabelValues("quota_unavailable").Inc()
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": search.QuotaUnavailableMessage, "code": "quota_unavailable"})
		default:
			s.logger.Error("search failed", "user", claims.Subject, "err", err)
			s.metrics.searches.WithLabelValues("error").Inc()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed", "code": "internal_error"})
		}
		return
	}

	s.metrics.searches.WithLabelValues(outcome).Inc()
	c.JSON(http.StatusOK, models.SearchResponse{
		Businesses:        res.Businesses,
		Count:             len(res.Businesses),
		SearchesRemaining: res.SearchesRemaining,
	})
}

// Autocomplete proxies query suggestions so the API key stays server side.
func (s *Server) Autocomplete(c *gin.Context) {
	input := strings.TrimSpace(c.Query("input"))
	if len([]rune(input)) < minAutocompleteInput {
		c.JSON(http.StatusOK, gin.H{"suggestions": []string{}})
		return
	}
	if s.businesses == nil || !s.businesses.Configured() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "business data api not configured"})
		return
	}

	suggestions, err := s.businesses.Autocomplete(c.Request.Context(), input)
	if err != nil {
		s.logger.Warn("autocomplete failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to fetch suggestions"})
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": suggestions})
}

// Geocode resolves a place name for the map's go-to box.
func (s *Server) Geocode(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please enter a location."})
		return
	}
	if s.geocoder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "geocoder not configured"})
		return
	}

	loc, err := s.geocoder.Lookup(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, geocode.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Location not found."})
			return
		}
		s.logger.Warn("geocode failed", "q", q, "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to fetch location. Please try again."})
		return
	}
	c.JSON(http.StatusOK, loc)
}
