package service

import (
	"context"
	"errors"

	"github.com/plant-scanner/internal/logging"
	"github.com/plant-scanner/internal/models"
	"github.com/plant-scanner/internal/types"
)

// PlantRepository interface for plant record operations
type PlantRepository interface {
	Ingest(ctx context.Context, userID string, record *models.PlantRecord) (bool, error)
	ListHistory(ctx context.Context, userID string) ([]*models.PlantRecord, error)
	ListCollection(ctx context.Context, userID string) ([]*models.PlantRecord, error)
}

// UserResolver is the slice of the user repository the pipeline needs
type UserResolver interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// ScanService is the ingestion pipeline: it persists identification
// results with at-most-once collection semantics. History records every
// scan; the collection gains a species only on its first sighting.
type ScanService struct {
	plants PlantRepository
	users  UserResolver
}

// NewScanService creates a new scan ingestion service
func NewScanService(plants PlantRepository, users UserResolver) *ScanService {
	return &ScanService{plants: plants, users: users}
}

// IngestInput represents one identification result to record
type IngestInput struct {
	UserID     string
	Species    string
	Confidence float64
	Rarity     types.Rarity
	ImageURL   *string
}

// IngestResult reports the persisted record and whether it opened a new
// collection slot for its species.
type IngestResult struct {
	Record            *models.PlantRecord `json:"plant"`
	AddedToCollection bool                `json:"addedToCollection"`
}

// Ingest validates and durably records one identification event. The
// storage layer runs the record, history and collection writes in a
// single transaction keyed on the normalized species, so a failed call
// leaves no partial state and retrying it is safe; concurrent ingestions
// of the same new species resolve to exactly one collection entry.
func (s *ScanService) Ingest(ctx context.Context, input *IngestInput) (*IngestResult, error) {
	if err := validateIngest(input); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(ctx, input.UserID)
	if err != nil {
		return nil, upstream(err)
	}
	if !exists {
		return nil, userNotFound()
	}

	record := &models.PlantRecord{
		Species:    input.Species,
		Confidence: input.Confidence,
		Rarity:     input.Rarity,
		ImageURL:   input.ImageURL,
	}

	addedToCollection, err := s.plants.Ingest(ctx, input.UserID, record)
	if err != nil {
		return nil, upstream(err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"userId":            input.UserID,
		"species":           record.SpeciesKey(),
		"addedToCollection": addedToCollection,
	}).Info("Scan ingested")

	return &IngestResult{Record: record, AddedToCollection: addedToCollection}, nil
}

func validateIngest(input *IngestInput) error {
	if types.NormalizeSpecies(input.Species) == "" {
		return &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "species is required",
		}
	}
	if !types.ValidConfidence(input.Confidence) {
		return &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "confidence must be between 0 and 1",
			Details: map[string]interface{}{"confidence": input.Confidence},
		}
	}
	if !types.ValidRarity(input.Rarity) {
		return &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "rarity must be one of common, uncommon, rare, legendary",
			Details: map[string]interface{}{"rarity": input.Rarity},
		}
	}
	return nil
}

// GetHistory returns every record the user ingested, in insertion order
func (s *ScanService) GetHistory(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	return s.listFor(ctx, userID, s.plants.ListHistory)
}

// GetCollection returns one representative record per distinct species
func (s *ScanService) GetCollection(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	return s.listFor(ctx, userID, s.plants.ListCollection)
}

func (s *ScanService) listFor(ctx context.Context, userID string, list func(context.Context, string) ([]*models.PlantRecord, error)) ([]*models.PlantRecord, error) {
	exists, err := s.users.Exists(ctx, userID)
	if err != nil {
		return nil, upstream(err)
	}
	if !exists {
		return nil, userNotFound()
	}

	records, err := list(ctx, userID)
	if err != nil {
		var serviceErr *types.ServiceError
		if errors.As(err, &serviceErr) {
			return nil, serviceErr
		}
		return nil, upstream(err)
	}

	return records, nil
}
