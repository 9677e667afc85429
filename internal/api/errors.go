package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/plant-scanner/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	json.NewEncoder(w).Encode(response) // nolint:errcheck // best effort write
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data) // nolint:errcheck // best effort write
	}
}

// parseJSONBody parses a JSON request body into an explicit per-operation
// struct. Unknown fields are rejected before any business logic runs.
func parseJSONBody(r *http.Request, v interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// respondServiceError maps a service error to an HTTP response. The
// client can distinguish "fix your input" from "try again later" from
// "log in again" from "not found" by status and code.
func respondServiceError(w http.ResponseWriter, err error) {
	var serviceErr *types.ServiceError
	if !errors.As(err, &serviceErr) {
		respondError(w, http.StatusInternalServerError, types.CodeInternal, "An internal error occurred", nil)
		return
	}

	var status int
	switch serviceErr.Code {
	case types.CodeInvalidInput:
		status = http.StatusBadRequest
	case types.CodeConflict:
		status = http.StatusConflict
	case types.CodeUnauthorized:
		status = http.StatusUnauthorized
	case types.CodeNotFound, types.CodeNoMatch:
		status = http.StatusNotFound
	case types.CodeUpstreamUnavailable:
		status = http.StatusServiceUnavailable
	default:
		respondError(w, http.StatusInternalServerError, types.CodeInternal, "An internal error occurred", nil)
		return
	}

	respondError(w, status, serviceErr.Code, serviceErr.Message, serviceErr.Details)
}
