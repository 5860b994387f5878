package quota

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/chaupham1092/lcalbizfinder/app/models"
)

const (
	usersCollection        = "users"
	searchesRemainingField = "searchesRemaining"
)

type quotaDoc struct {
	SearchesRemaining int `firestore:"searchesRemaining"`
}

// FirestoreStore keeps one document per user in the users collection.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to Firestore for projectID. credentialsFile may
// be empty to use application default credentials.
func NewFirestoreStore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) doc(userID string) *firestore.DocumentRef {
	return s.client.Collection(usersCollection).Doc(userID)
}

func (s *FirestoreStore) Get(ctx context.Context, userID string) (models.QuotaRecord, error) {
	if userID == "" {
		return models.QuotaRecord{}, ErrInvalidUser
	}
	snap, err := s.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.QuotaRecord{}, ErrNotFound
		}
		return models.QuotaRecord{}, err
	}
	var d quotaDoc
	if err := snap.DataTo(&d); err != nil {
		return models.QuotaRecord{}, fmt.Errorf("decode quota doc: %w", err)
	}
	return models.QuotaRecord{UserID: userID, SearchesRemaining: d.SearchesRemaining}, nil
}

// Provision uses Create so the document is written at most once.
func (s *FirestoreStore) Provision(ctx context.Context, userID string, initial int) (bool, error) {
	if userID == "" {
		return false, ErrInvalidUser
	}
	_, err := s.doc(userID).Create(ctx, quotaDoc{SearchesRemaining: clampNonNegative(initial)})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *FirestoreStore) Grant(ctx context.Context, userID string, value int) error {
	if userID == "" {
		return ErrInvalidUser
	}
	_, err := s.doc(userID).Set(ctx, map[string]interface{}{
		searchesRemainingField: clampNonNegative(value),
	}, firestore.MergeAll)
	return err
}

func (s *FirestoreStore) Consume(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, ErrInvalidUser
	}
	ref := s.doc(userID)
	remaining := 0
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return ErrNotFound
			}
			return err
		}
		var d quotaDoc
		if err := snap.DataTo(&d); err != nil {
			return fmt.Errorf("decode quota doc: %w", err)
		}
		if d.SearchesRemaining <= 0 {
			return ErrExhausted
		}
		remaining = d.SearchesRemaining - 1
		return tx.Update(ref, []firestore.Update{{Path: searchesRemainingField, Value: remaining}})
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrExhausted):
			return 0, err
		}
		return 0, fmt.Errorf("consume search: %w", err)
	}
	return remaining, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
