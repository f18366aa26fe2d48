package engagement

import (
	"time"

	"recTribeAPI/internal/docstore"
)

// Mark is one liked/completed fact for a (user, recommendation) pair. The
// document id is MarkKey(owner, rec), so at most one mark per pair can ever
// exist and toggling off is a direct delete, not a scan.
type Mark struct {
	RecID     string    `json:"recId"`
	OwnerUID  string    `json:"ownerUid"`
	CreatedAt time.Time `json:"createdAt"`
}

// MarkKey builds the composite document id for a mark.
func MarkKey(ownerUID, recID string) string {
	return ownerUID + ":" + recID
}

func (m *Mark) ToDoc() docstore.Document {
	return docstore.Document{
		"recId":     m.RecID,
		"ownerUid":  m.OwnerUID,
		"createdAt": m.CreatedAt,
	}
}

func FromDoc(doc docstore.Document) *Mark {
	return &Mark{
		RecID:     docstore.AsString(doc["recId"]),
		OwnerUID:  docstore.AsString(doc["ownerUid"]),
		CreatedAt: docstore.AsTime(doc["createdAt"]),
	}
}
