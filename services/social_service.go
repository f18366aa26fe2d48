package services

import (
	"context"
	"errors"
	"log"
	"time"

	"recTribeAPI/internal/docstore"
	"recTribeAPI/internal/notification"
	"recTribeAPI/internal/types/friendship"
	"recTribeAPI/internal/types/user"
)

// SocialService owns the friend-request lifecycle and the friendship
// relation. A nil store puts it in local-only mode: reads answer empty and
// mutations succeed without persisting, the same degradation the app shows
// when no backend is configured.
type SocialService struct {
	store  docstore.Store
	pusher notification.Pusher
}

func NewSocialService(store docstore.Store, pusher notification.Pusher) *SocialService {
	return &SocialService{store: store, pusher: pusher}
}

// FindUserByEmail resolves an exact email match, excluding the caller even
// on a self-match. Returns nil when nobody matches.
func (s *SocialService) FindUserByEmail(ctx context.Context, email, excludeUID string) (*user.User, error) {
	if s.store == nil {
		return nil, nil
	}

	records, err := s.store.QueryEquals(ctx, docstore.UsersCollection, "email", email)
	if err != nil {
		return nil, remoteFailure("search users by email", err)
	}

	for _, rec := range records {
		found := user.FromDoc(rec.Data)
		if found.UID == excludeUID {
			continue
		}
		return found, nil
	}
	return nil, nil
}

// SendRequest persists a new friend request after the exclusivity and
// already-friends guards. The sender's profile is snapshotted at send time,
// not live-joined later.
func (s *SocialService) SendRequest(ctx context.Context, from user.User, toUID string) (*friendship.FriendRequest, error) {
	if from.UID == toUID {
		return nil, ErrSelfFriend
	}

	request := &friendship.FriendRequest{
		FromUID:   from.UID,
		FromName:  from.DisplayName,
		FromPhoto: from.PhotoURL,
		FromEmail: from.Email,
		ToUID:     toUID,
		CreatedAt: time.Now(),
	}

	if s.store == nil {
		return request, nil
	}

	// A request may exist in at most one direction per pair system-wide.
	for _, pair := range [][2]string{{from.UID, toUID}, {toUID, from.UID}} {
		existing, err := s.pendingBetween(ctx, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, ErrDuplicateRequest
		}
	}

	areFriends, err := s.checkFriendship(ctx, from.UID, toUID)
	if err != nil {
		return nil, err
	}
	if areFriends {
		return nil, ErrAlreadyFriends
	}

	id, err := s.store.Create(ctx, docstore.FriendRequestsCollection, request.ToDoc())
	if err != nil {
		return nil, remoteFailure("create friend request", err)
	}
	request.ID = id

	s.notify(ctx, toUID, "New friend request", request.FromName+" wants to be friends", map[string]string{
		"type":      "friend_request",
		"requestId": id,
	})

	log.Printf("SendRequest: %s -> %s (request %s)", from.UID, toUID, id)
	return request, nil
}

// ListIncoming returns every request addressed to uid, stale ones included.
func (s *SocialService) ListIncoming(ctx context.Context, uid string) ([]*friendship.FriendRequest, error) {
	return s.listRequests(ctx, "toUid", uid)
}

// ListOutgoing returns every request uid has sent.
func (s *SocialService) ListOutgoing(ctx context.Context, uid string) ([]*friendship.FriendRequest, error) {
	return s.listRequests(ctx, "fromUid", uid)
}

func (s *SocialService) listRequests(ctx context.Context, field, uid string) ([]*friendship.FriendRequest, error) {
	if s.store == nil {
		return []*friendship.FriendRequest{}, nil
	}

	records, err := s.store.QueryEquals(ctx, docstore.FriendRequestsCollection, field, uid)
	if err != nil {
		return nil, remoteFailure("list friend requests", err)
	}

	requests := make([]*friendship.FriendRequest, 0, len(records))
	for _, rec := range records {
		requests = append(requests, friendship.RequestFromDoc(rec.ID, rec.Data))
	}
	return requests, nil
}

// Accept converts a request into a friendship, then deletes the request.
// The two writes are not atomic: a crash in between leaves a ghost request,
// which is harmless because re-accepting converges on the same friendship
// document and a missing request counts as already resolved.
func (s *SocialService) Accept(ctx context.Context, requestID, fromUID, toUID string) (*friendship.Friendship, error) {
	pair := newFriendship(fromUID, toUID)
	if s.store == nil {
		return pair, nil
	}

	if _, err := s.store.Get(ctx, docstore.FriendRequestsCollection, requestID); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			// Already accepted or rejected elsewhere.
			return pair, nil
		}
		return nil, remoteFailure("read friend request", err)
	}

	if err := s.store.Put(ctx, docstore.FriendsCollection, pair.ID, pair.ToDoc()); err != nil {
		return nil, remoteFailure("create friendship", err)
	}

	if err := s.store.Delete(ctx, docstore.FriendRequestsCollection, requestID); err != nil {
		return nil, remoteFailure("delete accepted friend request", err)
	}

	s.notify(ctx, fromUID, "Friend request accepted", "You have a new friend", map[string]string{
		"type": "friend_accept",
	})

	log.Printf("Accept: friendship %s created, request %s removed", pair.ID, requestID)
	return pair, nil
}

// Reject deletes the request without creating a friendship. Rejecting an
// already-resolved request is a no-op.
func (s *SocialService) Reject(ctx context.Context, requestID string) error {
	if s.store == nil {
		return nil
	}

	if err := s.store.Delete(ctx, docstore.FriendRequestsCollection, requestID); err != nil {
		return remoteFailure("delete friend request", err)
	}
	return nil
}

// InstantConnect creates the friendship directly, skipping the handshake,
// then clears any pending request between the pair so none outlives the
// friendship. Clearing is best-effort; a leftover is tolerated by Accept.
func (s *SocialService) InstantConnect(ctx context.Context, uidA, uidB string) (*friendship.Friendship, error) {
	if uidA == uidB {
		return nil, ErrSelfFriend
	}

	pair := newFriendship(uidA, uidB)
	if s.store == nil {
		return pair, nil
	}

	areFriends, err := s.checkFriendship(ctx, uidA, uidB)
	if err != nil {
		return nil, err
	}
	if areFriends {
		return nil, ErrAlreadyFriends
	}

	if err := s.store.Put(ctx, docstore.FriendsCollection, pair.ID, pair.ToDoc()); err != nil {
		return nil, remoteFailure("create friendship", err)
	}

	for _, dir := range [][2]string{{uidA, uidB}, {uidB, uidA}} {
		pending, err := s.pendingBetween(ctx, dir[0], dir[1])
		if err != nil {
			log.Printf("InstantConnect: could not check pending requests for %s/%s: %v", dir[0], dir[1], err)
			continue
		}
		if pending == nil {
			continue
		}
		if err := s.store.Delete(ctx, docstore.FriendRequestsCollection, pending.ID); err != nil {
			log.Printf("InstantConnect: could not clear pending request %s: %v", pending.ID, err)
		}
	}

	log.Printf("InstantConnect: friendship %s created", pair.ID)
	return pair, nil
}

// FriendIDs returns the counterpart uid of every friendship containing uid.
func (s *SocialService) FriendIDs(ctx context.Context, uid string) ([]string, error) {
	if s.store == nil {
		return []string{}, nil
	}

	records, err := s.store.QueryArrayContains(ctx, docstore.FriendsCollection, "users", uid)
	if err != nil {
		return nil, remoteFailure("list friendships", err)
	}

	ids := []string{}
	for _, rec := range records {
		for _, member := range friendship.FromDoc(rec.ID, rec.Data).Users {
			if member != uid {
				ids = append(ids, member)
			}
		}
	}
	return ids, nil
}

// Friends resolves FriendIDs against the users collection. A friend id with
// no resolvable profile is silently omitted.
func (s *SocialService) Friends(ctx context.Context, uid string) ([]*user.User, error) {
	ids, err := s.FriendIDs(ctx, uid)
	if err != nil {
		return nil, err
	}

	friends := []*user.User{}
	for _, fid := range ids {
		doc, err := s.store.Get(ctx, docstore.UsersCollection, fid)
		if err != nil {
			if errors.Is(err, docstore.ErrNotFound) {
				continue
			}
			return nil, remoteFailure("resolve friend profile", err)
		}
		friends = append(friends, user.FromDoc(doc))
	}
	return friends, nil
}

// Unfriend deletes the friendship document for the pair; absent is a no-op.
func (s *SocialService) Unfriend(ctx context.Context, uidA, uidB string) error {
	if s.store == nil {
		return nil
	}

	if err := s.store.Delete(ctx, docstore.FriendsCollection, friendship.PairKey(uidA, uidB)); err != nil {
		return remoteFailure("delete friendship", err)
	}
	log.Printf("Unfriend: removed friendship between %s and %s", uidA, uidB)
	return nil
}

// checkFriendship is the authority every guard consults. Friendships are
// keyed by the sorted pair, so this is a direct read rather than a scan.
func (s *SocialService) checkFriendship(ctx context.Context, uidA, uidB string) (bool, error) {
	_, err := s.store.Get(ctx, docstore.FriendsCollection, friendship.PairKey(uidA, uidB))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return false, nil
		}
		return false, remoteFailure("check friendship", err)
	}
	return true, nil
}

func (s *SocialService) pendingBetween(ctx context.Context, fromUID, toUID string) (*friendship.FriendRequest, error) {
	records, err := s.store.QueryEquals(ctx, docstore.FriendRequestsCollection, "fromUid", fromUID)
	if err != nil {
		return nil, remoteFailure("check existing friend requests", err)
	}

	for _, rec := range records {
		request := friendship.RequestFromDoc(rec.ID, rec.Data)
		if request.ToUID == toUID {
			return request, nil
		}
	}
	return nil, nil
}

// notify sends a best-effort push to uid's registered device. Failures are
// logged and never propagate into the social operation.
func (s *SocialService) notify(ctx context.Context, uid, title, body string, data map[string]string) {
	if s.pusher == nil || s.store == nil {
		return
	}

	doc, err := s.store.Get(ctx, docstore.UsersCollection, uid)
	if err != nil {
		return
	}

	token := user.FromDoc(doc).DeviceToken
	if token == "" {
		return
	}
	if err := s.pusher.SendPush(ctx, token, title, body, data); err != nil {
		log.Printf("notify: push to %s failed: %v", uid, err)
	}
}

func newFriendship(uidA, uidB string) *friendship.Friendship {
	return &friendship.Friendship{
		ID:        friendship.PairKey(uidA, uidB),
		Users:     []string{uidA, uidB},
		CreatedAt: time.Now(),
	}
}
