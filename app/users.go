package app

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/chaupham1092/lcalbizfinder/app/models"
	"github.com/chaupham1092/lcalbizfinder/auth"
)

// ProvisionUserFromClaims creates the user's quota record if it does not
// already exist. It runs after every successful authentication.
func (s *Server) ProvisionUserFromClaims(c *gin.Context, claims *auth.Claims) error {
	if claims == nil || claims.Subject == "" {
		return nil
	}
	return s.provision(c.Request.Context(), claims.Subject)
}

func (s *Server) provision(ctx context.Context, userID string) error {
	if _, ok := s.provisioned.Load(userID); ok {
		return nil
	}
	created, err := s.quota.Provision(ctx, userID, models.DefaultSearches)
	if err != nil {
		return err
	}
	if created {
		s.logger.Info("quota provisioned", "user", userID, "searches", models.DefaultSearches)
	}
	s.provisioned.Store(userID, struct{}{})
	return nil
}
