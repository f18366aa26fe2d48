package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recTribeAPI/internal/docstore"
	"recTribeAPI/internal/session"
	"recTribeAPI/internal/types/recommendation"
	"recTribeAPI/internal/types/user"
)

// flakyStore injects failures into individual store calls so the
// compensation and retry paths can be exercised. An empty failCollection
// fails writes to any collection.
type flakyStore struct {
	docstore.Store
	failCollection string
	failPuts       int
	failDeletes    int
}

var errInjected = errors.New("injected store failure")

func (f *flakyStore) targets(collection string) bool {
	return f.failCollection == "" || f.failCollection == collection
}

func (f *flakyStore) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	if f.failPuts > 0 && f.targets(collection) {
		f.failPuts--
		return errInjected
	}
	return f.Store.Put(ctx, collection, id, doc)
}

func (f *flakyStore) Delete(ctx context.Context, collection, id string) error {
	if f.failDeletes > 0 && f.targets(collection) {
		f.failDeletes--
		return errInjected
	}
	return f.Store.Delete(ctx, collection, id)
}

func newTestEngagement(t *testing.T, store docstore.Store) *EngagementService {
	t.Helper()
	return NewEngagementService(store, session.NewManager(), NewSocialService(store, nil))
}

func startSession(t *testing.T, svc *EngagementService, uid, name string) *session.Session {
	t.Helper()
	sess, err := svc.StartSession(context.Background(), user.User{UID: uid, DisplayName: name})
	if err != nil {
		t.Fatalf("StartSession for %s failed: %v", uid, err)
	}
	return sess
}

func createRec(t *testing.T, svc *EngagementService, sess *session.Session, title string) *recommendation.Recommendation {
	t.Helper()
	rec, err := svc.CreateRecommendation(context.Background(), sess, &recommendation.CreateRequest{
		Title:    title,
		Link:     "https://example.com/" + title,
		Category: "Movies",
	})
	if err != nil {
		t.Fatalf("CreateRecommendation(%s) failed: %v", title, err)
	}
	return rec
}

func markCount(t *testing.T, store docstore.Store, collection, recID string) int {
	t.Helper()
	records, err := store.QueryEquals(context.Background(), collection, "recId", recID)
	if err != nil {
		t.Fatalf("failed to query %s marks: %v", collection, err)
	}
	return len(records)
}

func TestToggleLikeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestEngagement(t, store)
	sess := startSession(t, svc, "alice", "Alice")
	rec := createRec(t, svc, sess, "inception")

	on, err := svc.ToggleLike(ctx, sess, rec.ID)
	if err != nil || !on {
		t.Fatalf("first toggle = %v (err %v), want on", on, err)
	}
	if !sess.Liked(rec.ID) {
		t.Fatal("local liked set should contain the id after toggle on")
	}
	if n := markCount(t, store, docstore.LikesCollection, rec.ID); n != 1 {
		t.Fatalf("like mark count = %d, want 1", n)
	}

	on, err = svc.ToggleLike(ctx, sess, rec.ID)
	if err != nil || on {
		t.Fatalf("second toggle = %v (err %v), want off", on, err)
	}
	if sess.Liked(rec.ID) {
		t.Fatal("two toggles should restore original membership")
	}
	if n := markCount(t, store, docstore.LikesCollection, rec.ID); n != 0 {
		t.Fatalf("like mark count after toggle off = %d, want 0", n)
	}
}

func TestToggleRollsBackOnRemoteFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: docstore.NewMemoryStore()}
	svc := newTestEngagement(t, flaky)
	sess := startSession(t, svc, "alice", "Alice")
	rec := createRec(t, svc, sess, "inception")

	flaky.failPuts = 1
	on, err := svc.ToggleLike(ctx, sess, rec.ID)
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("toggle with failing store: got %v, want ErrRemoteFailure", err)
	}
	if on || sess.Liked(rec.ID) {
		t.Fatal("failed toggle must restore the pre-call local state")
	}

	// Toggle-off failure rolls back the other way.
	if _, err := svc.ToggleCompleted(ctx, sess, rec.ID); err != nil {
		t.Fatalf("toggle on failed: %v", err)
	}
	flaky.failDeletes = 1
	on, err = svc.ToggleCompleted(ctx, sess, rec.ID)
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("toggle off with failing store: got %v, want ErrRemoteFailure", err)
	}
	if !on || !sess.Completed(rec.ID) {
		t.Fatal("failed toggle-off must leave the mark set")
	}
}

func TestCompletedItemsLeaveMainFeeds(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestEngagement(t, store)
	sess := startSession(t, svc, "alice", "Alice")

	rec, err := svc.CreateRecommendation(ctx, sess, &recommendation.CreateRequest{
		Title:      "inception",
		Link:       "https://example.com/inception",
		Category:   "Movies",
		Visibility: recommendation.VisibilityPublic,
	})
	if err != nil {
		t.Fatalf("CreateRecommendation failed: %v", err)
	}

	if _, err := svc.ToggleLike(ctx, sess, rec.ID); err != nil {
		t.Fatalf("ToggleLike failed: %v", err)
	}
	if _, err := svc.ToggleCompleted(ctx, sess, rec.ID); err != nil {
		t.Fatalf("ToggleCompleted failed: %v", err)
	}

	if feed := svc.Feed(sess, FeedPublic, recommendation.CategoryAll); len(feed) != 0 {
		t.Errorf("completed item still in public feed: %v", feed)
	}
	if feed := svc.Feed(sess, FeedFriends, recommendation.CategoryAll); len(feed) != 0 {
		t.Errorf("completed item still in friends feed: %v", feed)
	}
	if feed := svc.Feed(sess, FeedCompleted, recommendation.CategoryAll); len(feed) != 1 {
		t.Errorf("completed feed = %v, want the item", feed)
	}
	if feed := svc.Feed(sess, FeedLiked, recommendation.CategoryAll); len(feed) != 1 {
		t.Errorf("liked feed = %v, want the item despite completion", feed)
	}
}

func TestCreateRecommendationValidation(t *testing.T) {
	svc := newTestEngagement(t, docstore.NewMemoryStore())
	sess := startSession(t, svc, "alice", "Alice")

	cases := []recommendation.CreateRequest{
		{Link: "https://example.com", Category: "Movies"},
		{Title: "x", Category: "Movies"},
		{Title: "x", Link: "https://example.com"},
		{Title: "   ", Link: "https://example.com", Category: "Movies"},
	}
	for i, req := range cases {
		if _, err := svc.CreateRecommendation(context.Background(), sess, &req); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d: got %v, want ErrValidation", i, err)
		}
	}

	recs, _, _, _ := sess.Snapshot()
	if len(recs) != 0 {
		t.Fatalf("rejected creates must not touch local state, found %d recs", len(recs))
	}
}

func TestCreateRecommendationStampsAuthorAndPrepends(t *testing.T) {
	svc := newTestEngagement(t, docstore.NewMemoryStore())
	sess := startSession(t, svc, "alice", "Alice")

	first := createRec(t, svc, sess, "first")
	second := createRec(t, svc, sess, "second")

	if first.AuthorID != "alice" || first.Author.Name != "Alice" {
		t.Errorf("author not stamped: %+v", first)
	}
	if first.Visibility != recommendation.VisibilityFriends {
		t.Errorf("default visibility = %s, want friends", first.Visibility)
	}

	recs, _, _, _ := sess.Snapshot()
	if len(recs) != 2 || recs[0].ID != second.ID || recs[1].ID != first.ID {
		t.Fatalf("recs not newest-first: %v", ids(recs))
	}
}

func TestCreateRecommendationLocalFallback(t *testing.T) {
	svc := newTestEngagement(t, nil)
	sess := startSession(t, svc, "alice", "Alice")

	rec := createRec(t, svc, sess, "offline")
	if !strings.HasPrefix(rec.ID, "local-") {
		t.Fatalf("fallback id = %q, want local- prefix", rec.ID)
	}

	recs, _, _, _ := sess.Snapshot()
	if len(recs) != 1 {
		t.Fatalf("local create should still land in the session, found %d", len(recs))
	}
}

func TestDeleteRecommendationCascades(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestEngagement(t, store)
	alice := startSession(t, svc, "alice", "Alice")
	bob := startSession(t, svc, "bob", "Bob")

	rec := createRec(t, svc, alice, "inception")

	if _, err := svc.ToggleLike(ctx, alice, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleLike(ctx, bob, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleCompleted(ctx, bob, rec.ID); err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteRecommendation(ctx, alice, rec.ID); err != nil {
		t.Fatalf("DeleteRecommendation failed: %v", err)
	}

	if n := markCount(t, store, docstore.LikesCollection, rec.ID); n != 0 {
		t.Errorf("like marks left after cascade: %d", n)
	}
	if n := markCount(t, store, docstore.CompletedCollection, rec.ID); n != 0 {
		t.Errorf("completion marks left after cascade: %d", n)
	}
}

func TestDeleteCascadeRetriesAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: docstore.NewMemoryStore()}
	svc := newTestEngagement(t, flaky)
	alice := startSession(t, svc, "alice", "Alice")
	bob := startSession(t, svc, "bob", "Bob")

	rec := createRec(t, svc, alice, "inception")
	if _, err := svc.ToggleLike(ctx, alice, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleLike(ctx, bob, rec.ID); err != nil {
		t.Fatal(err)
	}

	// The recommendation delete succeeds, one like delete fails.
	flaky.failCollection = docstore.LikesCollection
	flaky.failDeletes = 1
	err := svc.DeleteRecommendation(ctx, alice, rec.ID)
	if !errors.Is(err, ErrRemoteFailure) {
		t.Fatalf("partial cascade: got %v, want ErrRemoteFailure", err)
	}
	if n := markCount(t, flaky, docstore.LikesCollection, rec.ID); n != 1 {
		t.Fatalf("like marks after partial cascade = %d, want exactly the failed one", n)
	}

	// Retrying converges: the remaining marks go away.
	if err := svc.DeleteRecommendation(ctx, alice, rec.ID); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if n := markCount(t, flaky, docstore.LikesCollection, rec.ID); n != 0 {
		t.Fatalf("like marks left after retry: %d", n)
	}
}

func TestAuthorOnlyMutation(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestEngagement(t, store)
	alice := startSession(t, svc, "alice", "Alice")
	bob := startSession(t, svc, "bob", "Bob")

	rec := createRec(t, svc, alice, "inception")

	if err := svc.DeleteRecommendation(ctx, bob, rec.ID); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("non-author delete: got %v, want ErrNotAuthor", err)
	}
	if _, err := svc.EditRecommendation(ctx, bob, rec.ID, &recommendation.Patch{Title: "hijacked"}); !errors.Is(err, ErrNotAuthor) {
		t.Fatalf("non-author edit: got %v, want ErrNotAuthor", err)
	}

	doc, err := store.Get(ctx, docstore.RecommendationsCollection, rec.ID)
	if err != nil {
		t.Fatalf("recommendation should survive refused mutations: %v", err)
	}
	if got := recommendation.FromDoc(rec.ID, doc); got.Title != "inception" {
		t.Fatalf("title mutated by non-author: %q", got.Title)
	}
}

func TestEditMergesPatch(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestEngagement(t, store)
	sess := startSession(t, svc, "alice", "Alice")

	rec := createRec(t, svc, sess, "inception")

	updated, err := svc.EditRecommendation(ctx, sess, rec.ID, &recommendation.Patch{Title: "Inception (2010)"})
	if err != nil {
		t.Fatalf("EditRecommendation failed: %v", err)
	}
	if updated.Title != "Inception (2010)" {
		t.Errorf("returned title = %q", updated.Title)
	}
	if updated.Category != "Movies" {
		t.Errorf("unpatched field changed: category = %q", updated.Category)
	}

	// Both the remote document and the session copy carry the merge.
	doc, _ := store.Get(ctx, docstore.RecommendationsCollection, rec.ID)
	if got := recommendation.FromDoc(rec.ID, doc); got.Title != "Inception (2010)" || got.Link != rec.Link {
		t.Errorf("stored doc after edit: %+v", got)
	}
	local, ok := sess.FindRec(rec.ID)
	if !ok || local.Title != "Inception (2010)" {
		t.Errorf("session copy after edit: %+v", local)
	}
}

func TestRefreshSessionOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := newTestEngagement(t, store)
	sess := startSession(t, svc, "alice", "Alice")

	createRec(t, svc, sess, "oldest")
	createRec(t, svc, sess, "newest")

	if err := svc.RefreshSession(ctx, sess); err != nil {
		t.Fatalf("RefreshSession failed: %v", err)
	}

	recs, _, _, _ := sess.Snapshot()
	if len(recs) != 2 || recs[0].Title != "newest" || recs[1].Title != "oldest" {
		titles := make([]string, len(recs))
		for i, r := range recs {
			titles[i] = r.Title
		}
		t.Fatalf("recs after refresh = %v, want newest first", titles)
	}
}
