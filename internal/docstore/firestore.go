package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirestoreStore backs the contract with Cloud Firestore through the
// Firebase app, the same service-account wiring used for FCM.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, credentialsFile string) (*FirestoreStore, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

func (f *FirestoreStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	ref, _, err := f.client.Collection(collection).Add(ctx, map[string]any(doc))
	if err != nil {
		return "", fmt.Errorf("failed to create document in %s: %w", collection, err)
	}
	return ref.ID, nil
}

func (f *FirestoreStore) Put(ctx context.Context, collection, id string, doc Document) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, map[string]any(doc))
	if err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *FirestoreStore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		if snap != nil && !snap.Exists() {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, id, err)
	}
	return Document(snap.Data()), nil
}

func (f *FirestoreStore) List(ctx context.Context, collection string) ([]Record, error) {
	return f.runQuery(ctx, f.client.Collection(collection).Query)
}

func (f *FirestoreStore) QueryEquals(ctx context.Context, collection, field, value string) ([]Record, error) {
	return f.runQuery(ctx, f.client.Collection(collection).Where(field, "==", value))
}

func (f *FirestoreStore) QueryArrayContains(ctx context.Context, collection, field, value string) ([]Record, error) {
	return f.runQuery(ctx, f.client.Collection(collection).Where(field, "array-contains", value))
}

func (f *FirestoreStore) runQuery(ctx context.Context, q firestore.Query) ([]Record, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	var out []Record
	for _, snap := range snaps {
		out = append(out, Record{ID: snap.Ref.ID, Data: Document(snap.Data())})
	}
	return out, nil
}

func (f *FirestoreStore) Update(ctx context.Context, collection, id string, patch Document) error {
	_, err := f.client.Collection(collection).Doc(id).Set(ctx, map[string]any(patch), firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to update document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *FirestoreStore) Delete(ctx context.Context, collection, id string) error {
	// Firestore deletes are no-ops on absent documents already.
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (f *FirestoreStore) Close() error {
	return f.client.Close()
}
