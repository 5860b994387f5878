package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/chaupham1092/lcalbizfinder/app/config"
)

// Open builds the Store selected by cfg.Quota.Backend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Quota.Backend {
	case "firestore", "":
		if cfg.Firebase.ProjectID == "" {
			return nil, errors.New("FIREBASE_PROJECT_ID must be set for the firestore backend")
		}
		return NewFirestoreStore(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
	case "postgres":
		return OpenPostgres(ctx, cfg.DB.DSN())
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown quota backend: %q", cfg.Quota.Backend)
	}
}
