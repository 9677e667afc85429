package api

import (
	"net/http"

	"github.com/plant-scanner/internal/types"
)

// handleMe handles GET /api/me - Current user's profile
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	profile, err := s.accountService.GetProfile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, profile)
}

// handleChangePassword handles POST /api/user/change-password
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.CodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID := userIDFromContext(r.Context())
	if err := s.accountService.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Password updated"})
}

// handleUpdateProfilePicture handles PUT /api/user/profile-picture
func (s *Server) handleUpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProfilePicture string `json:"profilePicture"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.CodeInvalidInput, "Invalid request body", nil)
		return
	}

	userID := userIDFromContext(r.Context())
	if err := s.accountService.UpdateProfilePicture(r.Context(), userID, req.ProfilePicture); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Profile picture updated"})
}
