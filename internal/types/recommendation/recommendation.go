package recommendation

import (
	"time"

	"recTribeAPI/internal/docstore"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityFriends Visibility = "friends"
)

// CategoryAll is the filter sentinel that disables category filtering.
const CategoryAll = "All"

// AuthorSnapshot is the author's profile as it was at creation time; it is
// never live-joined against the users collection afterwards.
type AuthorSnapshot struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type Recommendation struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Category    string         `json:"category"`
	Link        string         `json:"link"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Visibility  Visibility     `json:"visibility"`
	AuthorID    string         `json:"authorId"`
	Author      AuthorSnapshot `json:"author"`
	CreatedAt   time.Time      `json:"createdAt"`
}

func (r *Recommendation) ToDoc() docstore.Document {
	return docstore.Document{
		"title":       r.Title,
		"category":    r.Category,
		"link":        r.Link,
		"description": r.Description,
		"image":       r.Image,
		"visibility":  string(r.Visibility),
		"authorId":    r.AuthorID,
		"author": map[string]any{
			"name":   r.Author.Name,
			"avatar": r.Author.Avatar,
		},
		"createdAt": r.CreatedAt,
	}
}

func FromDoc(id string, doc docstore.Document) *Recommendation {
	rec := &Recommendation{
		ID:          id,
		Title:       docstore.AsString(doc["title"]),
		Category:    docstore.AsString(doc["category"]),
		Link:        docstore.AsString(doc["link"]),
		Description: docstore.AsString(doc["description"]),
		Image:       docstore.AsString(doc["image"]),
		Visibility:  Visibility(docstore.AsString(doc["visibility"])),
		AuthorID:    docstore.AsString(doc["authorId"]),
		CreatedAt:   docstore.AsTime(doc["createdAt"]),
	}

	if author, ok := doc["author"].(map[string]any); ok {
		rec.Author.Name = docstore.AsString(author["name"])
		rec.Author.Avatar = docstore.AsString(author["avatar"])
	}
	return rec
}

type CreateRequest struct {
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Link        string     `json:"link"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Visibility  Visibility `json:"visibility"`
}

// Patch carries an edit; empty fields are left unchanged, matching the
// shallow-merge semantics of the store's Update.
type Patch struct {
	Title       string     `json:"title"`
	Category    string     `json:"category"`
	Link        string     `json:"link"`
	Description string     `json:"description"`
	Image       string     `json:"image"`
	Visibility  Visibility `json:"visibility"`
}

func (p *Patch) ToDoc() docstore.Document {
	doc := docstore.Document{}
	if p.Title != "" {
		doc["title"] = p.Title
	}
	if p.Category != "" {
		doc["category"] = p.Category
	}
	if p.Link != "" {
		doc["link"] = p.Link
	}
	if p.Description != "" {
		doc["description"] = p.Description
	}
	if p.Image != "" {
		doc["image"] = p.Image
	}
	if p.Visibility != "" {
		doc["visibility"] = string(p.Visibility)
	}
	return doc
}

// Apply merges the patch into rec the same way the store merges the doc.
func (p *Patch) Apply(rec *Recommendation) {
	if p.Title != "" {
		rec.Title = p.Title
	}
	if p.Category != "" {
		rec.Category = p.Category
	}
	if p.Link != "" {
		rec.Link = p.Link
	}
	if p.Description != "" {
		rec.Description = p.Description
	}
	if p.Image != "" {
		rec.Image = p.Image
	}
	if p.Visibility != "" {
		rec.Visibility = p.Visibility
	}
}
