package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"recTribeAPI/internal/session"
	"recTribeAPI/internal/types/recommendation"
	"recTribeAPI/middleware"
	"recTribeAPI/services"
)

type RecommendationHandler struct {
	userService       *services.UserService
	engagementService *services.EngagementService
}

func NewRecommendationHandler(userService *services.UserService, engagementService *services.EngagementService) *RecommendationHandler {
	return &RecommendationHandler{
		userService:       userService,
		engagementService: engagementService,
	}
}

// GetFeed serves one of the four derived views over the session caches.
func (h *RecommendationHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
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

	view := services.FeedView(r.URL.Query().Get("view"))
	if view == "" {
		view = services.FeedPublic
	}
	if !view.Valid() {
		respondWithError(w, http.StatusBadRequest, "view must be one of public, friends, liked, completed")
		return
	}

	category := r.URL.Query().Get("category")
	feed := h.engagementService.Feed(sess, view, category)
	middleware.CountFeedRequest(string(view))

	respondWithJSON(w, http.StatusOK, feed)
}

func (h *RecommendationHandler) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
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

	var req recommendation.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.engagementService.CreateRecommendation(ctx, sess, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rec)
}

func (h *RecommendationHandler) EditRecommendation(w http.ResponseWriter, r *http.Request) {
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

	var patch recommendation.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.engagementService.EditRecommendation(ctx, sess, mux.Vars(r)["id"], &patch)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (h *RecommendationHandler) DeleteRecommendation(w http.ResponseWriter, r *http.Request) {
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

	if err := h.engagementService.DeleteRecommendation(ctx, sess, mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Recommendation deleted"})
}

func (h *RecommendationHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "like", h.engagementService.ToggleLike)
}

func (h *RecommendationHandler) ToggleCompleted(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "complete", h.engagementService.ToggleCompleted)
}

func (h *RecommendationHandler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	kind string,
	fn func(context.Context, *session.Session, string) (bool, error),
) {
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

	active, err := fn(ctx, sess, mux.Vars(r)["id"])
	middleware.CountToggle(kind, err == nil)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]bool{"active": active})
}
