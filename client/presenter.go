package client

import (
	"context"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

// Presenter is the UI surface a Session renders through.
type Presenter interface {
	Alert(msg string)
	Loading(on bool)
	ShowBusinesses(businesses []models.Business)
	ShowNoResults(msg string)
	ShowSuggestions(suggestions []string)
	CenterMap(loc models.Location)
}

// Redirector sends the user to the processor's hosted checkout page.
type Redirector interface {
	Redirect(ctx context.Context, sess models.CheckoutSession) error
}
