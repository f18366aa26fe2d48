package friendship

import (
	"time"

	"recTribeAPI/internal/docstore"
)

// FriendRequest snapshots the sender's profile at send time so the inbox
// renders without a live join. It is deleted on accept or reject, never
// parked in a terminal state.
type FriendRequest struct {
	ID        string    `json:"id"`
	FromUID   string    `json:"fromUid"`
	FromName  string    `json:"fromName"`
	FromPhoto string    `json:"fromPhoto"`
	FromEmail string    `json:"fromEmail"`
	ToUID     string    `json:"toUid"`
	CreatedAt time.Time `json:"createdAt"`
}

func (r *FriendRequest) ToDoc() docstore.Document {
	return docstore.Document{
		"fromUid":   r.FromUID,
		"fromName":  r.FromName,
		"fromPhoto": r.FromPhoto,
		"fromEmail": r.FromEmail,
		"toUid":     r.ToUID,
		"createdAt": r.CreatedAt,
	}
}

func RequestFromDoc(id string, doc docstore.Document) *FriendRequest {
	return &FriendRequest{
		ID:        id,
		FromUID:   docstore.AsString(doc["fromUid"]),
		FromName:  docstore.AsString(doc["fromName"]),
		FromPhoto: docstore.AsString(doc["fromPhoto"]),
		FromEmail: docstore.AsString(doc["fromEmail"]),
		ToUID:     docstore.AsString(doc["toUid"]),
		CreatedAt: docstore.AsTime(doc["createdAt"]),
	}
}

// Friendship is the symmetric relation document. Its id is PairKey of the
// two uids, which is what makes duplicate creation under racing sessions a
// mergeable overwrite instead of a second document.
type Friendship struct {
	ID        string    `json:"id"`
	Users     []string  `json:"users"`
	CreatedAt time.Time `json:"createdAt"`
}

// PairKey returns the canonical id for an unordered uid pair.
func PairKey(uidA, uidB string) string {
	if uidB < uidA {
		uidA, uidB = uidB, uidA
	}
	return uidA + "_" + uidB
}

func (f *Friendship) ToDoc() docstore.Document {
	return docstore.Document{
		"users":     f.Users,
		"createdAt": f.CreatedAt,
	}
}

func FromDoc(id string, doc docstore.Document) *Friendship {
	return &Friendship{
		ID:        id,
		Users:     docstore.AsStringSlice(doc["users"]),
		CreatedAt: docstore.AsTime(doc["createdAt"]),
	}
}
