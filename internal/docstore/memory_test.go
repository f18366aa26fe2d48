package docstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx, "recommendations", Document{"title": "inception"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("Create returned an empty id")
	}

	doc, err := store.Get(ctx, "recommendations", id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if AsString(doc["title"]) != "inception" {
		t.Fatalf("stored doc = %v", doc)
	}

	if _, err := store.Get(ctx, "recommendations", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get of missing id: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStorePutReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "users", "u1", Document{"uid": "u1", "displayName": "Alice"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "users", "u1", Document{"uid": "u1"}); err != nil {
		t.Fatal(err)
	}

	doc, err := store.Get(ctx, "users", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc["displayName"]; ok {
		t.Fatal("Put must replace the whole document, not merge")
	}
}

func TestMemoryStoreUpdateMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "users", "u1", Document{"uid": "u1", "displayName": "Alice"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Update(ctx, "users", "u1", Document{"deviceToken": "tok"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	doc, _ := store.Get(ctx, "users", "u1")
	if AsString(doc["displayName"]) != "Alice" || AsString(doc["deviceToken"]) != "tok" {
		t.Fatalf("Update did not merge: %v", doc)
	}

	if err := store.Update(ctx, "users", "ghost", Document{"x": "y"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update of missing doc: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Put(ctx, "likes", "u1:r1", Document{"recId": "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "likes", "u1:r1"); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "likes", "u1:r1"); err != nil {
		t.Fatalf("repeated Delete must be a no-op, got: %v", err)
	}
	if err := store.Delete(ctx, "never-seen", "x"); err != nil {
		t.Fatalf("Delete in an unknown collection must be a no-op, got: %v", err)
	}
}

func TestMemoryStoreQueries(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	seed := map[string]Document{
		"u1:r1": {"recId": "r1", "ownerUid": "u1"},
		"u1:r2": {"recId": "r2", "ownerUid": "u1"},
		"u2:r1": {"recId": "r1", "ownerUid": "u2"},
	}
	for id, doc := range seed {
		if err := store.Put(ctx, "likes", id, doc); err != nil {
			t.Fatal(err)
		}
	}

	byOwner, err := store.QueryEquals(ctx, "likes", "ownerUid", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byOwner) != 2 {
		t.Fatalf("QueryEquals ownerUid=u1 returned %d records, want 2", len(byOwner))
	}

	byRec, err := store.QueryEquals(ctx, "likes", "recId", "r1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byRec) != 2 {
		t.Fatalf("QueryEquals recId=r1 returned %d records, want 2", len(byRec))
	}

	none, err := store.QueryEquals(ctx, "likes", "recId", "r9")
	if err != nil || len(none) != 0 {
		t.Fatalf("QueryEquals with no matches = %v (err %v)", none, err)
	}
}

func TestMemoryStoreQueryArrayContains(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	pairs := map[string][]string{
		"a_b": {"a", "b"},
		"a_c": {"a", "c"},
		"b_c": {"b", "c"},
	}
	for id, users := range pairs {
		if err := store.Put(ctx, "friends", id, Document{"users": users}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.QueryArrayContains(ctx, "friends", "users", "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("QueryArrayContains users~a returned %d records, want 2", len(got))
	}
	for _, rec := range got {
		users := AsStringSlice(rec.Data["users"])
		if len(users) != 2 || (users[0] != "a" && users[1] != "a") {
			t.Errorf("record %s does not contain a: %v", rec.ID, users)
		}
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	original := Document{"title": "inception"}
	if err := store.Put(ctx, "recommendations", "r1", original); err != nil {
		t.Fatal(err)
	}
	original["title"] = "mutated after put"

	doc, _ := store.Get(ctx, "recommendations", "r1")
	if AsString(doc["title"]) != "inception" {
		t.Fatal("Put must copy the caller's document")
	}

	doc["title"] = "mutated after get"
	again, _ := store.Get(ctx, "recommendations", "r1")
	if AsString(again["title"]) != "inception" {
		t.Fatal("Get must return a copy, not the stored document")
	}
}

func TestMemoryStoreList(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	empty, err := store.List(ctx, "recommendations")
	if err != nil || len(empty) != 0 {
		t.Fatalf("List of empty collection = %v (err %v)", empty, err)
	}

	for _, title := range []string{"a", "b", "c"} {
		if _, err := store.Create(ctx, "recommendations", Document{"title": title}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := store.List(ctx, "recommendations")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d records, want 3", len(all))
	}
	for _, rec := range all {
		if rec.ID == "" || AsString(rec.Data["title"]) == "" {
			t.Errorf("malformed record: %+v", rec)
		}
	}
}
