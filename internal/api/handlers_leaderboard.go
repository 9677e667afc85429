package api

import "net/http"

// handleLeaderboard handles GET /api/leaderboard - public ranking of all
// users by distinct species collected, largest collection first.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	standings, err := s.leaderboardService.Compute(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, standings)
}
