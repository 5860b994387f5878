// Package models defines the quota record and the payloads shared by the
// server, the client and the store backends.
package models

const (
	// DefaultSearches is the quota a user gets the first time they sign in.
	DefaultSearches = 100
	// GrantSearches is the value a completed checkout resets the quota to.
	GrantSearches = 100
)

// QuotaRecord is the per-user search quota document.
type QuotaRecord struct {
	UserID            string `json:"userId" db:"user_id"`
	SearchesRemaining int    `json:"searchesRemaining" db:"searches_remaining"`
}

// User is the signed-in identity a client session acts for.
type User struct {
	ID      string
	Email   string
	IDToken string
}
