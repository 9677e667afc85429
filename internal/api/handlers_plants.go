package api

import (
	"net/http"

	"github.com/plant-scanner/internal/service"
	"github.com/plant-scanner/internal/types"
)

// maxImageSize caps uploaded identification images at 10 MiB
const maxImageSize = 10 << 20

// handleIngest handles POST /api/history and POST /api/collection -
// record one identification result for the authenticated user.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Species    string       `json:"species"`
		Confidence float64      `json:"confidence"`
		Rarity     types.Rarity `json:"rarity"`
		ImageURL   *string      `json:"imageUrl,omitempty"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, types.CodeInvalidInput, "Invalid request body", nil)
		return
	}

	result, err := s.scanService.Ingest(r.Context(), &service.IngestInput{
		UserID:     userIDFromContext(r.Context()),
		Species:    req.Species,
		Confidence: req.Confidence,
		Rarity:     req.Rarity,
		ImageURL:   req.ImageURL,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":           "Plant added to history",
		"addedToCollection": result.AddedToCollection,
		"plant":             result.Record,
	})
}

// handleGetHistory handles GET /api/history - every scan, in order
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	records, err := s.scanService.GetHistory(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// handleGetCollection handles GET /api/collection - distinct species
func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	records, err := s.scanService.GetCollection(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// handleIdentify handles POST /api/identify - proxy an image to the
// species recognizer and return the ranked candidates. Identification
// does not write anything; the client submits the chosen result to
// POST /api/history afterwards.
func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respondError(w, http.StatusBadRequest, types.CodeInvalidInput, "Expected multipart form with an image file", nil)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, types.CodeInvalidInput, "Image file is required", nil)
		return
	}
	defer file.Close() // nolint:errcheck // read-only temp file

	identification, err := s.recognizerClient.Identify(r.Context(), file, header.Filename)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, identification)
}
