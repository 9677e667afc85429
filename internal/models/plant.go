package models

import (
	"time"

	"github.com/plant-scanner/internal/types"
)

// PlantRecord represents one identification event. Records are immutable
// once written; the same species scanned twice produces two records.
type PlantRecord struct {
	ID         string       `json:"id" db:"id"`
	Species    string       `json:"species" db:"species"`
	Confidence float64      `json:"confidence" db:"confidence"`
	Rarity     types.Rarity `json:"rarity" db:"rarity"`
	ImageURL   *string      `json:"imageUrl,omitempty" db:"image_url"`
	CreatedAt  time.Time    `json:"createdAt" db:"created_at"`
}

// SpeciesKey returns the normalized species name used for collection
// de-duplication.
func (p *PlantRecord) SpeciesKey() string {
	return types.NormalizeSpecies(p.Species)
}

// Standing is one leaderboard row: a user ranked by the number of
// distinct species in their collection.
type Standing struct {
	Username       string `json:"username"`
	CollectionSize int    `json:"collectionSize"`
}
