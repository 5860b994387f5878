// Package quota stores the per-user search quota and provides Firestore,
// Postgres and in-memory implementations.
package quota

import (
	"context"
	"errors"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

var (
	// ErrNotFound is returned when a user has no quota record.
	ErrNotFound = errors.New("quota record not found")
	// ErrExhausted is returned by Consume when no searches are left.
	ErrExhausted = errors.New("no searches remaining")
	// ErrInvalidUser is returned for an empty user id.
	ErrInvalidUser = errors.New("missing user id")
)

// Store is the persistence contract for quota records.
//
// Implementations must make Provision create-if-absent, Grant an absolute
// overwrite and Consume a conditional decrement that never goes below zero.
type Store interface {
	// Get returns the record for userID or ErrNotFound.
	Get(ctx context.Context, userID string) (models.QuotaRecord, error)
	// Provision creates the record with initial searches if it does not
	// exist and reports whether it was created.
	Provision(ctx context.Context, userID string, initial int) (bool, error)
	// Grant sets the remaining count to value, creating the record if needed.
	Grant(ctx context.Context, userID string, value int) error
	// Consume decrements the remaining count by one and returns the new value.
	Consume(ctx context.Context, userID string) (int, error)
	Close() error
}
