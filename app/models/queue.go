package models

import "time"

// QuotaGrantMessage is published after a completed checkout resets a quota.
type QuotaGrantMessage struct {
	UserID            string    `json:"user_id"`
	EventID           string    `json:"event_id"`
	CheckoutSessionID string    `json:"checkout_session_id"`
	SearchesRemaining int       `json:"searches_remaining"`
	GrantedAt         time.Time `json:"granted_at"`
}
