package services

import (
	"recTribeAPI/internal/types/recommendation"
)

type FeedView string

const (
	FeedPublic    FeedView = "public"
	FeedFriends   FeedView = "friends"
	FeedLiked     FeedView = "liked"
	FeedCompleted FeedView = "completed"
)

func (v FeedView) Valid() bool {
	switch v {
	case FeedPublic, FeedFriends, FeedLiked, FeedCompleted:
		return true
	}
	return false
}

// ComposeFeed derives one of the four feed views from the full
// recommendation set and the caller's friend/liked/completed sets. It is a
// pure function: no I/O, deterministic, and it preserves the input order,
// which callers keep insertion-time descending.
//
// Completed items drop out of the public and friends views but stay in the
// liked view, so an item can appear in both liked and completed.
func ComposeFeed(
	recs []*recommendation.Recommendation,
	friendIDs, liked, completed map[string]bool,
	selfUID string,
	view FeedView,
	category string,
) []*recommendation.Recommendation {
	out := []*recommendation.Recommendation{}
	for _, rec := range recs {
		var match bool
		switch view {
		case FeedPublic:
			match = rec.Visibility == recommendation.VisibilityPublic && !completed[rec.ID]
		case FeedFriends:
			visible := friendIDs[rec.AuthorID] ||
				rec.AuthorID == selfUID ||
				rec.Visibility == recommendation.VisibilityPublic
			match = visible && !completed[rec.ID]
		case FeedLiked:
			match = liked[rec.ID]
		case FeedCompleted:
			match = completed[rec.ID]
		}

		if !match {
			continue
		}
		if category != recommendation.CategoryAll && category != "" && rec.Category != category {
			continue
		}
		out = append(out, rec)
	}
	return out
}
