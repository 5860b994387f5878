package client

import "github.com/chaupham1092/lcalbizfinder/app/models"

// Event is one user or auth action handled by Session.Dispatch.
type Event interface {
	event()
}

// AuthStateChanged reports sign-in (User set) or sign-out (User nil).
type AuthStateChanged struct {
	User *models.User
}

// PinPlaced drops a pin. A zero radius takes the session radius.
type PinPlaced struct {
	Pin models.Pin
}

type PinRemoved struct {
	ID int
}

// RadiusChanged sets the radius in meters applied to new pins.
type RadiusChanged struct {
	Meters int
}

type QueryChanged struct {
	Text string
}

type LocationRequested struct {
	Place string
}

type SearchRequested struct{}

type PaymentRequested struct{}

func (AuthStateChanged) event()  {}
func (PinPlaced) event()         {}
func (PinRemoved) event()        {}
func (RadiusChanged) event()     {}
func (QueryChanged) event()      {}
func (LocationRequested) event() {}
func (SearchRequested) event()   {}
func (PaymentRequested) event()  {}
