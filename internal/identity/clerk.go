package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/clerk/clerk-sdk-go/v2"
	clerkuser "github.com/clerk/clerk-sdk-go/v2/user"

	"recTribeAPI/internal/types/user"
)

// ClerkProvider resolves profiles through the Clerk backend API using the
// global key set in main.
type ClerkProvider struct{}

func NewClerkProvider() *ClerkProvider {
	return &ClerkProvider{}
}

func (p *ClerkProvider) Lookup(ctx context.Context, uid string) (*user.User, error) {
	clerkUser, err := clerkuser.Get(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clerk user %s: %w", uid, err)
	}

	return &user.User{
		UID:         uid,
		DisplayName: displayName(clerkUser),
		Email:       primaryEmail(clerkUser),
		PhotoURL:    stringValue(clerkUser.ImageURL),
	}, nil
}

func displayName(u *clerk.User) string {
	name := strings.TrimSpace(stringValue(u.FirstName) + " " + stringValue(u.LastName))
	if name != "" {
		return name
	}
	return stringValue(u.Username)
}

func primaryEmail(u *clerk.User) string {
	for _, email := range u.EmailAddresses {
		if u.PrimaryEmailAddressID != nil && email.ID == *u.PrimaryEmailAddressID {
			return email.EmailAddress
		}
	}
	if len(u.EmailAddresses) > 0 {
		return u.EmailAddresses[0].EmailAddress
	}
	return ""
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
