// Package app provides public health and authenticated identity endpoints.
package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chaupham1092/lcalbizfinder/auth"
	"github.com/chaupham1092/lcalbizfinder/quota"
)

// Health is a public health check endpoint.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Me returns the authenticated user's remaining searches.
func (s *Server) Me(c *gin.Context) {
	claims, ok := auth.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth context"})
		return
	}

	ctx := c.Request.Context()
	rec, err := s.quota.Get(ctx, claims.Subject)
	if errors.Is(err, quota.ErrNotFound) {
		// The record may have been removed behind the provisioning cache.
		s.provisioned.Delete(claims.Subject)
		if err = s.provision(ctx, claims.Subject); err == nil {
			rec, err = s.quota.Get(ctx, claims.Subject)
		}
	}
	if err != nil {
		s.logger.Error("load quota failed", "user", claims.Subject, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"userId":            claims.Subject,
		"email":             claims.Email,
		"searchesRemaining": rec.SearchesRemaining,
	})
}
