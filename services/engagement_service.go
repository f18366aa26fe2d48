package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"recTribeAPI/internal/docstore"
	"recTribeAPI/internal/session"
	"recTribeAPI/internal/types/engagement"
	"recTribeAPI/internal/types/recommendation"
	"recTribeAPI/internal/types/user"
)

// EngagementService mirrors each user's liked/completed sets and the shared
// recommendation set between the session caches and the store. Toggles are
// optimistic: the local flip lands first and is inverted if the remote write
// fails, so success means local and remote agree and failure restores the
// pre-call state.
type EngagementService struct {
	store    docstore.Store
	sessions *session.Manager
	social   *SocialService
}

func NewEngagementService(store docstore.Store, sessions *session.Manager, social *SocialService) *EngagementService {
	return &EngagementService{store: store, sessions: sessions, social: social}
}

// StartSession returns the live session for u, building and loading one on
// the first call after login.
func (s *EngagementService) StartSession(ctx context.Context, u user.User) (*session.Session, error) {
	if sess, ok := s.sessions.Get(u.UID); ok {
		return sess, nil
	}

	sess := session.New(u)
	if err := s.RefreshSession(ctx, sess); err != nil {
		return nil, err
	}
	s.sessions.Put(sess)
	return sess, nil
}

// EndSession drops the session caches on logout.
func (s *EngagementService) EndSession(uid string) {
	s.sessions.Drop(uid)
}

// RefreshSession re-pulls the recommendation set, both engagement sets and
// the friend-id set from the store. This is the full reload that reconciles
// any divergence left by unawaited failures.
func (s *EngagementService) RefreshSession(ctx context.Context, sess *session.Session) error {
	if s.store == nil {
		return nil
	}

	records, err := s.store.List(ctx, docstore.RecommendationsCollection)
	if err != nil {
		return remoteFailure("load recommendations", err)
	}

	recs := make([]*recommendation.Recommendation, 0, len(records))
	for _, rec := range records {
		recs = append(recs, recommendation.FromDoc(rec.ID, rec.Data))
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.After(recs[j].CreatedAt)
	})
	sess.SetRecs(recs)

	liked, err := s.loadMarks(ctx, docstore.LikesCollection, sess.User.UID)
	if err != nil {
		return err
	}
	completed, err := s.loadMarks(ctx, docstore.CompletedCollection, sess.User.UID)
	if err != nil {
		return err
	}
	sess.SetEngagement(liked, completed)

	friendIDs, err := s.social.FriendIDs(ctx, sess.User.UID)
	if err != nil {
		return err
	}
	sess.SetFriendIDs(friendIDs)
	return nil
}

func (s *EngagementService) loadMarks(ctx context.Context, collection, uid string) (map[string]bool, error) {
	records, err := s.store.QueryEquals(ctx, collection, "ownerUid", uid)
	if err != nil {
		return nil, remoteFailure("load engagement marks", err)
	}

	out := make(map[string]bool, len(records))
	for _, rec := range records {
		out[engagement.FromDoc(rec.Data).RecID] = true
	}
	return out, nil
}

// Feed composes the requested view from the session's current caches.
func (s *EngagementService) Feed(sess *session.Session, view FeedView, category string) []*recommendation.Recommendation {
	recs, friendIDs, liked, completed := sess.Snapshot()
	return ComposeFeed(recs, friendIDs, liked, completed, sess.User.UID, view, category)
}

// ToggleLike flips liked membership for recID and reports the new state.
func (s *EngagementService) ToggleLike(ctx context.Context, sess *session.Session, recID string) (bool, error) {
	return s.toggle(ctx, sess, docstore.LikesCollection, recID, sess.Liked, sess.SetLiked)
}

// ToggleCompleted flips completed membership for recID and reports the new state.
func (s *EngagementService) ToggleCompleted(ctx context.Context, sess *session.Session, recID string) (bool, error) {
	return s.toggle(ctx, sess, docstore.CompletedCollection, recID, sess.Completed, sess.SetCompleted)
}

func (s *EngagementService) toggle(
	ctx context.Context,
	sess *session.Session,
	collection, recID string,
	current func(string) bool,
	set func(string, bool),
) (bool, error) {
	turningOn := !current(recID)
	set(recID, turningOn)

	if s.store == nil {
		return turningOn, nil
	}

	key := engagement.MarkKey(sess.User.UID, recID)
	var err error
	if turningOn {
		mark := &engagement.Mark{RecID: recID, OwnerUID: sess.User.UID, CreatedAt: time.Now()}
		err = s.store.Put(ctx, collection, key, mark.ToDoc())
	} else {
		err = s.store.Delete(ctx, collection, key)
	}

	if err != nil {
		// Compensate the optimistic flip before reporting.
		set(recID, !turningOn)
		return !turningOn, remoteFailure("sync engagement mark", err)
	}
	return turningOn, nil
}

// CreateRecommendation validates, stamps authorship, persists and prepends
// the new entity to the session's recommendation set. Without a store the id
// is a synthesized local- placeholder that is never persisted anywhere.
func (s *EngagementService) CreateRecommendation(ctx context.Context, sess *session.Session, req *recommendation.CreateRequest) (*recommendation.Recommendation, error) {
	if strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Link) == "" ||
		strings.TrimSpace(req.Category) == "" {
		return nil, fmt.Errorf("%w: title, link and category are required", ErrValidation)
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = recommendation.VisibilityFriends
	}

	rec := &recommendation.Recommendation{
		Title:       req.Title,
		Category:    req.Category,
		Link:        req.Link,
		Description: req.Description,
		Image:       req.Image,
		Visibility:  visibility,
		AuthorID:    sess.User.UID,
		Author: recommendation.AuthorSnapshot{
			Name:   sess.User.DisplayName,
			Avatar: sess.User.PhotoURL,
		},
		CreatedAt: time.Now(),
	}

	if s.store == nil {
		rec.ID = "local-" + uuid.New().String()
	} else {
		id, err := s.store.Create(ctx, docstore.RecommendationsCollection, rec.ToDoc())
		if err != nil {
			return nil, remoteFailure("create recommendation", err)
		}
		rec.ID = id
	}

	sess.PrependRec(rec)
	log.Printf("CreateRecommendation: %s created %s (%s)", sess.User.UID, rec.ID, rec.Title)
	return rec, nil
}

// DeleteRecommendation removes an authored recommendation and cascades over
// both mark collections. The cascade is a sequence of idempotent deletes;
// a partial failure is reported but every step that could apply has applied,
// so a retry converges.
func (s *EngagementService) DeleteRecommendation(ctx context.Context, sess *session.Session, id string) error {
	local, haveLocal := sess.FindRec(id)
	if haveLocal && local.AuthorID != sess.User.UID {
		return ErrNotAuthor
	}

	if s.store == nil {
		if !haveLocal {
			return ErrNotFound
		}
		sess.RemoveRec(id)
		return nil
	}

	doc, err := s.store.Get(ctx, docstore.RecommendationsCollection, id)
	switch {
	case err == nil:
		if recommendation.FromDoc(id, doc).AuthorID != sess.User.UID {
			return ErrNotAuthor
		}
	case errors.Is(err, docstore.ErrNotFound):
		// Already deleted; fall through so a retried partial cascade can finish.
		if !haveLocal {
			return s.cascadeMarks(ctx, id)
		}
	default:
		return remoteFailure("read recommendation", err)
	}

	if err := s.store.Delete(ctx, docstore.RecommendationsCollection, id); err != nil {
		return remoteFailure("delete recommendation", err)
	}
	sess.RemoveRec(id)

	return s.cascadeMarks(ctx, id)
}

func (s *EngagementService) cascadeMarks(ctx context.Context, recID string) error {
	var failed error
	for _, collection := range []string{docstore.LikesCollection, docstore.CompletedCollection} {
		records, err := s.store.QueryEquals(ctx, collection, "recId", recID)
		if err != nil {
			log.Printf("DeleteRecommendation: cascade scan of %s failed for %s: %v", collection, recID, err)
			failed = err
			continue
		}
		for _, rec := range records {
			if err := s.store.Delete(ctx, collection, rec.ID); err != nil {
				log.Printf("DeleteRecommendation: cascade delete %s/%s failed: %v", collection, rec.ID, err)
				failed = err
			}
		}
	}

	if failed != nil {
		return remoteFailure("cascade mark deletion", failed)
	}
	return nil
}

// EditRecommendation merges a patch into an authored recommendation, remote
// first, then the session copy.
func (s *EngagementService) EditRecommendation(ctx context.Context, sess *session.Session, id string, patch *recommendation.Patch) (*recommendation.Recommendation, error) {
	local, haveLocal := sess.FindRec(id)
	if haveLocal && local.AuthorID != sess.User.UID {
		return nil, ErrNotAuthor
	}

	if s.store == nil {
		if !haveLocal {
			return nil, ErrNotFound
		}
		sess.PatchRec(id, patch)
		updated, _ := sess.FindRec(id)
		return &updated, nil
	}

	doc, err := s.store.Get(ctx, docstore.RecommendationsCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, remoteFailure("read recommendation", err)
	}
	if recommendation.FromDoc(id, doc).AuthorID != sess.User.UID {
		return nil, ErrNotAuthor
	}

	if err := s.store.Update(ctx, docstore.RecommendationsCollection, id, patch.ToDoc()); err != nil {
		return nil, remoteFailure("update recommendation", err)
	}

	sess.PatchRec(id, patch)
	updated := recommendation.FromDoc(id, doc)
	patch.Apply(updated)
	return updated, nil
}
