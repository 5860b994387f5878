package models

import "strings"

const notAvailable = "N/A"

// Pin is a map coordinate plus the search radius in meters.
type Pin struct {
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Radius int     `json:"radius"`
}

const (
	DefaultRadius = 1000
	MinRadius     = 1
	MaxRadius     = 50000
)

// Valid reports whether the coordinate and radius are in range.
func (p Pin) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 &&
		p.Lng >= -180 && p.Lng <= 180 &&
		p.Radius >= MinRadius && p.Radius <= MaxRadius
}

// Contacts is the optional contact block of a business record.
type Contacts struct {
	Emails       []string `json:"emails"`
	PhoneNumbers []string `json:"phone_numbers"`
	Facebook     string   `json:"facebook,omitempty"`
	Instagram    string   `json:"instagram,omitempty"`
	LinkedIn     string   `json:"linkedin,omitempty"`
}

// Business is one result of a nearby search.
type Business struct {
	BusinessID        string    `json:"business_id,omitempty"`
	Name              string    `json:"name"`
	PhoneNumber       string    `json:"phone_number,omitempty"`
	Website           string    `json:"website,omitempty"`
	FullAddress       string    `json:"full_address,omitempty"`
	Latitude          float64   `json:"latitude,omitempty"`
	Longitude         float64   `json:"longitude,omitempty"`
	Rating            float64   `json:"rating,omitempty"`
	ReviewCount       int       `json:"review_count,omitempty"`
	Type              string    `json:"type,omitempty"`
	EmailsAndContacts *Contacts `json:"emails_and_contacts,omitempty"`
}

// DisplayPhone returns the phone number or N/A.
func (b Business) DisplayPhone() string { return orNA(b.PhoneNumber) }

// DisplayWebsite returns the website or N/A.
func (b Business) DisplayWebsite() string { return orNA(b.Website) }

// DisplayEmail returns the first contact email or N/A.
func (b Business) DisplayEmail() string {
	if b.EmailsAndContacts == nil || len(b.EmailsAndContacts.Emails) == 0 {
		return notAvailable
	}
	return orNA(b.EmailsAndContacts.Emails[0])
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	Query string `json:"query"`
	Pins  []Pin  `json:"pins"`
}

// SearchResponse is returned by POST /api/search.
type SearchResponse struct {
	Businesses        []Business `json:"businesses"`
	Count             int        `json:"count"`
	SearchesRemaining int        `json:"searchesRemaining"`
}

// CheckoutSession is what the payment session endpoint hands back.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// Location is a geocoded place.
type Location struct {
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	DisplayName string  `json:"displayName,omitempty"`
}
