package services

import (
	"errors"
	"fmt"
)

// Guard violations are returned as typed failures so handlers can pick the
// right status; they are never swallowed.
var (
	ErrValidation       = errors.New("missing required fields")
	ErrDuplicateRequest = errors.New("friend request already exists")
	ErrAlreadyFriends   = errors.New("already friends")
	ErrSelfFriend       = errors.New("cannot friend yourself")
	ErrNotFound         = errors.New("not found")
	ErrNotAuthor        = errors.New("only the author may modify this recommendation")

	// ErrRemoteFailure wraps a transient store failure. Toggles compensate
	// their optimistic local flip before returning it; cascades return it
	// after applying every step they could, and are safe to retry.
	ErrRemoteFailure = errors.New("remote store failure")
)

func remoteFailure(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrRemoteFailure, op, err)
}
