package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"recTribeAPI/internal/types/user"
	"recTribeAPI/middleware"
	"recTribeAPI/services"
)

type UserHandler struct {
	userService       *services.UserService
	engagementService *services.EngagementService
	socialService     *services.SocialService
}

func NewUserHandler(userService *services.UserService, engagementService *services.EngagementService, socialService *services.SocialService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		engagementService: engagementService,
		socialService:     socialService,
	}
}

// GetProfile returns the caller's profile with the counts the profile page
// shows: own recommendations and friends.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sess, authed, err := resolveSession(ctx, h.userService, h.engagementService)
	if !authed {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	recs, friendIDs, _, _ := sess.Snapshot()
	var mine []any
	for _, rec := range recs {
		if rec.AuthorID == sess.User.UID {
			mine = append(mine, rec)
		}
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"user":            sess.User,
		"recommendations": mine,
		"shared_count":    len(mine),
		"friends_count":   len(friendIDs),
	})
}

func (h *UserHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req user.RegisterDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.userService.RegisterDevice(ctx, uid, req.DeviceToken); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Device registered"})
}

// Logout tears down the caller's session caches.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	uid, ok := middleware.GetUserID(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	h.engagementService.EndSession(uid)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// RefreshSession re-pulls every session cache from the store; this is the
// full reload that clears any divergence after failures.
func (h *UserHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	sess, authed, err := resolveSession(ctx, h.userService, h.engagementService)
	if !authed {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	if err := h.engagementService.RefreshSession(ctx, sess); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Session refreshed"})
}

// SearchUsers finds a user by exact email, excluding the caller.
func (h *UserHandler) SearchUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	email := r.URL.Query().Get("email")
	if email == "" {
		respondWithError(w, http.StatusBadRequest, "Search query parameter 'email' is required")
		return
	}

	found, err := h.socialService.FindUserByEmail(ctx, email, uid)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if found == nil {
		respondWithError(w, http.StatusNotFound, "No user with that email")
		return
	}
	respondWithJSON(w, http.StatusOK, found)
}
