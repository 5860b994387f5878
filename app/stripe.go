package app

import (
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/checkout/session"

	"github.com/chaupham1092/lcalbizfinder/app/config"
)

// CheckoutSessions creates Stripe Checkout Sessions. session.Client satisfies it.
type CheckoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// InitStripe wires the Stripe API key and returns the checkout session client.
func InitStripe(cfg *config.Config) CheckoutSessions {
	stripe.Key = cfg.Stripe.SecretKey
	return session.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: cfg.Stripe.SecretKey,
	}
}

// checkoutParams builds the single-SKU, one-time payment session for userID.
func checkoutParams(cfg *config.Config, userID string) *stripe.CheckoutSessionParams {
	baseURL := cfg.BaseURL
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(cfg.Stripe.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(baseURL + "/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(baseURL + "/cancel"),
		ClientReferenceID: stripe.String(userID),
	}
	params.AddMetadata(metadataUserID, userID)
	return params
}
