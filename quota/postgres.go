package quota

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

const createQuotaTable = `
	CREATE TABLE IF NOT EXISTS search_quotas (
		user_id            TEXT PRIMARY KEY,
		searches_remaining INT NOT NULL CHECK (searches_remaining >= 0),
		created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	);
`

// PostgresStore keeps quotas in the search_quotas table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects with lib/pq, pings and creates the table.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db.Ping: %w", err)
	}
	s := NewPostgresStore(db)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the quota table if it is missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createQuotaTable); err != nil {
		return fmt.Errorf("create search_quotas: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, userID string) (models.QuotaRecord, error) {
	if userID == "" {
		return models.QuotaRecord{}, ErrInvalidUser
	}
	rec := models.QuotaRecord{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT searches_remaining
		FROM search_quotas
		WHERE user_id = $1;
	`, userID).Scan(&rec.SearchesRemaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QuotaRecord{}, ErrNotFound
		}
		return models.QuotaRecord{}, err
	}
	return rec, nil
}

func (s *PostgresStore) Provision(ctx context.Context, userID string, initial int) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUser
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO search_quotas (user_id, searches_remaining)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING;
	`, userID, clampNonNegative(initial))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *PostgresStore) Grant(ctx context.Context, userID string, value int) error {
	if userID == "" {
		return ErrInvalidUser
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_quotas (user_id, searches_remaining)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET searches_remaining = EXCLUDED.searches_remaining, updated_at = now();
	`, userID, clampNonNegative(value))
	return err
}

func (s *PostgresStore) Consume(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUser
	}
	var remaining int
	err := s.db.QueryRowContext(ctx, `
		UPDATE search_quotas
		SET searches_remaining = searches_remaining - 1, updated_at = now()
		WHERE user_id = $1 AND searches_remaining > 0
		RETURNING searches_remaining;
	`, userID).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}
	// Nothing updated: either the row is missing or it is already at zero.
	if _, getErr := s.Get(ctx, userID); getErr != nil {
		return 0, getErr
	}
	return 0, ErrExhausted
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
