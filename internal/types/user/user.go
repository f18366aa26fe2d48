package user

import (
	"time"

	"recTribeAPI/internal/docstore"
)

// User is the profile document stored under the identity provider's uid.
// Identity is immutable; profile fields are owned by the provider and
// refreshed lazily.
type User struct {
	UID         string    `json:"uid"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoURL"`
	DeviceToken string    `json:"deviceToken,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (u *User) ToDoc() docstore.Document {
	return docstore.Document{
		"uid":         u.UID,
		"displayName": u.DisplayName,
		"email":       u.Email,
		"photoURL":    u.PhotoURL,
		"deviceToken": u.DeviceToken,
		"createdAt":   u.CreatedAt,
	}
}

func FromDoc(doc docstore.Document) *User {
	return &User{
		UID:         docstore.AsString(doc["uid"]),
		DisplayName: docstore.AsString(doc["displayName"]),
		Email:       docstore.AsString(doc["email"]),
		PhotoURL:    docstore.AsString(doc["photoURL"]),
		DeviceToken: docstore.AsString(doc["deviceToken"]),
		CreatedAt:   docstore.AsTime(doc["createdAt"]),
	}
}

type RegisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
}
