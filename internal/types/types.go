// Package types provides common type definitions for the plant scanner system.
package types

import "strings"

// Rarity classifies how uncommon an identified species is.
// The classification comes from the recognition model's species index.
type Rarity string

const (
	// RarityCommon represents frequently identified species
	RarityCommon Rarity = "common"
	// RarityUncommon represents moderately rare species
	RarityUncommon Rarity = "uncommon"
	// RarityRare represents rarely identified species
	RarityRare Rarity = "rare"
	// RarityLegendary represents the rarest species tier
	RarityLegendary Rarity = "legendary"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Error codes shared between services and the API boundary.
const (
	// CodeInvalidInput marks malformed or missing input the caller can fix
	CodeInvalidInput = "INVALID_INPUT"
	// CodeConflict marks a uniqueness violation on registration
	CodeConflict = "CONFLICT"
	// CodeUnauthorized marks bad credentials or an invalid/expired token
	CodeUnauthorized = "UNAUTHORIZED"
	// CodeNotFound marks a referenced entity that does not exist
	CodeNotFound = "NOT_FOUND"
	// CodeUpstreamUnavailable marks a retryable datastore or recognizer failure
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	// CodeNoMatch marks a recognition request with no candidate species
	CodeNoMatch = "NO_MATCH"
	// CodeInternal marks an unexpected failure
	CodeInternal = "INTERNAL_ERROR"
)

// NormalizeSpecies returns the canonical key used for collection
// de-duplication: trimmed, whitespace-collapsed, lower-cased scientific name.
// "Rosa  Chinensis" and "rosa chinensis" count as the same species.
func NormalizeSpecies(species string) string {
	return strings.ToLower(strings.Join(strings.Fields(species), " "))
}

// ValidRarity reports whether a rarity is one of the known tiers.
func ValidRarity(rarity Rarity) bool {
	switch rarity {
	case RarityCommon, RarityUncommon, RarityRare, RarityLegendary:
		return true
	}
	return false
}

// ValidConfidence reports whether a confidence score lies in [0, 1].
// Both boundary values are accepted.
func ValidConfidence(confidence float64) bool {
	return confidence >= 0 && confidence <= 1
}
