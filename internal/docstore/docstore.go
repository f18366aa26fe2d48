package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no document exists under the id.
// Delete never returns it: deleting an absent document is a no-op so
// cascades and retries stay idempotent.
var ErrNotFound = errors.New("document not found")

// Document is a single stored record's fields.
type Document map[string]any

// Record pairs a document with its store-assigned id.
type Record struct {
	ID   string
	Data Document
}

// Store is the capability contract every backend implements. There is no
// cross-document atomicity; callers sequence guard-then-write themselves
// and must tolerate benign duplicates under concurrent writers.
type Store interface {
	// Create inserts doc under a store-assigned id and returns that id.
	Create(ctx context.Context, collection string, doc Document) (string, error)
	// Put inserts or fully replaces the document under a caller-chosen id.
	Put(ctx context.Context, collection, id string, doc Document) error
	Get(ctx context.Context, collection, id string) (Document, error)
	// List reads the whole collection.
	List(ctx context.Context, collection string) ([]Record, error)
	QueryEquals(ctx context.Context, collection, field, value string) ([]Record, error)
	QueryArrayContains(ctx context.Context, collection, field, value string) ([]Record, error)
	// Update shallow-merges patch into the existing document.
	Update(ctx context.Context, collection, id string, patch Document) error
	Delete(ctx context.Context, collection, id string) error
}

// Collection names shared by every backend.
const (
	UsersCollection           = "users"
	RecommendationsCollection = "recommendations"
	LikesCollection           = "likes"
	CompletedCollection       = "completed"
	FriendRequestsCollection  = "friendRequests"
	FriendsCollection         = "friends"
)

// AsString reads a string field, tolerating absence.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsTime reads a timestamp field. The postgres backend round-trips documents
// through JSON, so timestamps may come back as RFC3339 strings.
func AsTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// AsStringSlice reads an array-of-strings field, tolerating the []any shape
// JSON decoding produces.
func AsStringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
