package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"recTribeAPI/internal/docstore"
	"recTribeAPI/internal/identity"
	"recTribeAPI/internal/types/user"
)

// UserService creates and maintains user profile documents. Profiles are
// created lazily on the first authenticated request (idempotent upsert), so
// there is no separate signup path.
type UserService struct {
	store    docstore.Store
	provider identity.Provider
}

func NewUserService(store docstore.Store, provider identity.Provider) *UserService {
	return &UserService{store: store, provider: provider}
}

// EnsureProfile returns the stored profile for uid, creating it from the
// identity provider on first sight. Calling it again is a no-op read.
func (s *UserService) EnsureProfile(ctx context.Context, uid string) (*user.User, error) {
	if s.store != nil {
		doc, err := s.store.Get(ctx, docstore.UsersCollection, uid)
		if err == nil {
			return user.FromDoc(doc), nil
		}
		if !errors.Is(err, docstore.ErrNotFound) {
			return nil, remoteFailure("read user profile", err)
		}
	}

	profile := s.resolveIdentity(ctx, uid)
	profile.CreatedAt = time.Now()

	if s.store != nil {
		if err := s.store.Put(ctx, docstore.UsersCollection, uid, profile.ToDoc()); err != nil {
			return nil, remoteFailure("create user profile", err)
		}
		log.Printf("EnsureProfile: created profile for %s", uid)
	}
	return profile, nil
}

func (s *UserService) resolveIdentity(ctx context.Context, uid string) *user.User {
	if s.provider != nil {
		profile, err := s.provider.Lookup(ctx, uid)
		if err == nil {
			return profile
		}
		log.Printf("EnsureProfile: identity lookup for %s failed: %v", uid, err)
	}
	// Identity provider unreachable; persist the bare uid so the graph
	// still works and profile fields fill in on a later refresh.
	return &user.User{UID: uid}
}

// RegisterDevice stores the FCM device token on the user document.
func (s *UserService) RegisterDevice(ctx context.Context, uid, token string) error {
	if token == "" {
		return fmt.Errorf("%w: device token is required", ErrValidation)
	}
	if s.store == nil {
		return nil
	}

	if err := s.store.Update(ctx, docstore.UsersCollection, uid, docstore.Document{"deviceToken": token}); err != nil {
		return remoteFailure("register device token", err)
	}
	return nil
}
