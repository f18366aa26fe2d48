package identity

import (
	"context"

	"recTribeAPI/internal/types/user"
)

// Provider resolves an authenticated uid to its profile. Authentication
// itself happens in the middleware; this is only the profile lookup used
// for lazy user-document creation.
type Provider interface {
	Lookup(ctx context.Context, uid string) (*user.User, error)
}
