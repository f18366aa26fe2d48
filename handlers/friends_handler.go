package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"recTribeAPI/internal/session"
	"recTribeAPI/internal/types/friendship"
	"recTribeAPI/middleware"
	"recTribeAPI/services"
)

type FriendsHandler struct {
	userService       *services.UserService
	engagementService *services.EngagementService
	socialService     *services.SocialService
}

func NewFriendsHandler(userService *services.UserService, engagementService *services.EngagementService, socialService *services.SocialService) *FriendsHandler {
	return &FriendsHandler{
		userService:       userService,
		engagementService: engagementService,
		socialService:     socialService,
	}
}

type sendRequestBody struct {
	ToUID string `json:"toUid"`
}

type acceptRequestBody struct {
	FromUID string `json:"fromUid"`
	ToUID   string `json:"toUid"`
}

type connectBody struct {
	UID string `json:"uid"`
}

func (h *FriendsHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
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

	var body sendRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ToUID == "" {
		respondWithError(w, http.StatusBadRequest, "'toUid' is required")
		return
	}

	request, err := h.socialService.SendRequest(ctx, sess.User, body.ToUID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, request)
}

func (h *FriendsHandler) ListIncoming(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.socialService.ListIncoming)
}

func (h *FriendsHandler) ListOutgoing(w http.ResponseWriter, r *http.Request) {
	h.listRequests(w, r, h.socialService.ListOutgoing)
}

func (h *FriendsHandler) listRequests(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]*friendship.FriendRequest, error)) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	requests, err := list(ctx, uid)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, requests)
}

func (h *FriendsHandler) Accept(w http.ResponseWriter, r *http.Request) {
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

	var body acceptRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.FromUID == "" || body.ToUID == "" {
		respondWithError(w, http.StatusBadRequest, "'fromUid' and 'toUid' are required")
		return
	}

	pair, err := h.socialService.Accept(ctx, mux.Vars(r)["id"], body.FromUID, body.ToUID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.syncFriendIDs(ctx, sess)
	respondWithJSON(w, http.StatusOK, pair)
}

func (h *FriendsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	if err := h.socialService.Reject(ctx, mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, err)
		return
	}

	log.Printf("Reject: %s rejected request %s", uid, mux.Vars(r)["id"])
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Request rejected"})
}

func (h *FriendsHandler) InstantConnect(w http.ResponseWriter, r *http.Request) {
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

	var body connectBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UID == "" {
		respondWithError(w, http.StatusBadRequest, "'uid' is required")
		return
	}

	pair, err := h.socialService.InstantConnect(ctx, sess.User.UID, body.UID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.syncFriendIDs(ctx, sess)
	respondWithJSON(w, http.StatusOK, pair)
}

func (h *FriendsHandler) GetFriends(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	friends, err := h.socialService.Friends(ctx, uid)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, friends)
}

func (h *FriendsHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
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

	if err := h.socialService.Unfriend(ctx, sess.User.UID, mux.Vars(r)["uid"]); err != nil {
		respondWithServiceError(w, err)
		return
	}

	h.syncFriendIDs(ctx, sess)
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Friend removed"})
}

// syncFriendIDs refreshes the session's friend-id cache after a graph
// mutation so the friends feed reflects it immediately.
func (h *FriendsHandler) syncFriendIDs(ctx context.Context, sess *session.Session) {
	ids, err := h.socialService.FriendIDs(ctx, sess.User.UID)
	if err != nil {
		log.Printf("syncFriendIDs: refresh for %s failed: %v", sess.User.UID, err)
		return
	}
	sess.SetFriendIDs(ids)
}
