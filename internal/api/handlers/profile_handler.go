package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/isdelr/insight-board-be/internal/auth"
	"github.com/isdelr/insight-board-be/internal/services"
)

// ProfileHandler handles the authenticated profile endpoints.
type ProfileHandler struct {
	users  services.UserServiceProvider
	tokens *auth.Manager
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(users services.UserServiceProvider, tokens *auth.Manager) *ProfileHandler {
	return &ProfileHandler{users: users, tokens: tokens}
}

// UpdateProfilePayload defines the structure for profile update requests.
// CurrentPassword and NewPassword are optional; a password rotation happens
// only when NewPassword is set.
type UpdateProfilePayload struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ProfileResponse is the success shape for profile reads.
type ProfileResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// GetProfile returns the profile of the user behind the bearer token.
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	user, err := h.users.GetUserByID(claims.UserID)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			log.Warn().Int64("user_id", claims.UserID).Msg("User from token not found in DB")
			respondError(w, http.StatusNotFound, "User not found")
			return
		}
		log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to load profile")
		respondError(w, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	respondJSON(w, http.StatusOK, ProfileResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

// UpdateProfile applies name/email changes and an optional password rotation
// for the caller, then re-issues a token over the possibly-changed email.
// Previously issued tokens are not invalidated.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		respondError(w, http.StatusInternalServerError, "Could not retrieve user from token")
		return
	}

	var payload UpdateProfilePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.UpdateProfile(claims.UserID, services.ProfileUpdate{
		Name:            payload.Name,
		Email:           payload.Email,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound):
			respondError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, services.ErrInvalidCredentials):
			respondError(w, http.StatusBadRequest, "Current password is incorrect")
		case errors.Is(err, services.ErrEmailExists):
			respondError(w, http.StatusBadRequest, "Email already in use")
		default:
			log.Error().Err(err).Int64("user_id", claims.UserID).Msg("Failed to update profile")
			respondError(w, http.StatusInternalServerError, "Failed to update profile")
		}
		return
	}

	token, err := h.tokens.Issue(user)
	if err != nil {
		log.Error().Err(err).Int64("user_id", user.ID).Msg("Failed to issue token")
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Profile updated successfully",
		"token":   token,
		"name":    user.Name,
	})
}
