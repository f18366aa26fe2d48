package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"recTribeAPI/internal/session"
	"recTribeAPI/middleware"
	"recTribeAPI/services"
)

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithServiceError maps the service error taxonomy onto HTTP codes.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrSelfFriend):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrNotAuthor):
		respondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrDuplicateRequest), errors.Is(err, services.ErrAlreadyFriends):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, services.ErrRemoteFailure):
		respondWithError(w, http.StatusBadGateway, "Remote store failure, please retry")
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}

// resolveSession authenticates the request, lazily creates the profile and
// returns the caller's live session.
func resolveSession(
	ctx context.Context,
	users *services.UserService,
	engagement *services.EngagementService,
) (*session.Session, bool, error) {
	uid, ok := middleware.GetUserID(ctx)
	if !ok {
		return nil, false, nil
	}

	profile, err := users.EnsureProfile(ctx, uid)
	if err != nil {
		return nil, true, err
	}

	sess, err := engagement.StartSession(ctx, *profile)
	if err != nil {
		return nil, true, err
	}
	return sess, true, nil
}
