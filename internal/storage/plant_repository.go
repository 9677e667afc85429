package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/plant-scanner/internal/models"
	"github.com/plant-scanner/internal/types"
)

// PlantRepository handles plant record persistence and the history and
// collection links hanging off each user.
type PlantRepository struct {
	db *PostgresDB
}

// NewPlantRepository creates a new plant repository
func NewPlantRepository(db *PostgresDB) *PlantRepository {
	return &PlantRepository{db: db}
}

// Ingest durably records one identification event. The record, the
// history row and the conditional collection row are written in a single
// transaction, so a failure anywhere rolls the whole event back and the
// caller can retry safely.
//
// The collection insert relies on the (user_id, species_key) primary key:
// ON CONFLICT DO NOTHING makes "add species if absent" atomic, so two
// concurrent ingestions of the same new species cannot both claim the
// first-sighting slot. The reported bool is true only for the insert
// that won.
func (r *PlantRepository) Ingest(ctx context.Context, userID string, record *models.PlantRecord) (bool, error) {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin ingest transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	insertRecord := `
		INSERT INTO plant_records (id, species, confidence, rarity, image_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.Exec(ctx, insertRecord,
		record.ID,
		record.Species,
		record.Confidence,
		record.Rarity,
		record.ImageURL,
		record.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create plant record: %w", err)
	}

	insertCollection := `
		INSERT INTO user_collection (user_id, species_key, plant_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, species_key) DO NOTHING
	`
	tag, err := tx.Exec(ctx, insertCollection,
		userID,
		types.NormalizeSpecies(record.Species),
		record.ID,
		record.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update collection: %w", err)
	}
	addedToCollection := tag.RowsAffected() > 0

	insertHistory := `
		INSERT INTO user_history (user_id, plant_id, created_at)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.Exec(ctx, insertHistory, userID, record.ID, record.CreatedAt); err != nil {
		return false, fmt.Errorf("failed to append history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit ingest transaction: %w", err)
	}

	return addedToCollection, nil
}

const plantColumns = `p.id, p.species, p.confidence, p.rarity, p.image_url, p.created_at`

func (r *PlantRepository) queryRecords(ctx context.Context, query, userID string) ([]*models.PlantRecord, error) {
	rows, err := r.db.Pool().Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query plant records: %w", err)
	}
	defer rows.Close()

	records := []*models.PlantRecord{}
	for rows.Next() {
		var p models.PlantRecord
		err := rows.Scan(
			&p.ID,
			&p.Species,
			&p.Confidence,
			&p.Rarity,
			&p.ImageURL,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plant record: %w", err)
		}
		records = append(records, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plant records: %w", err)
	}

	return records, nil
}

// ListHistory returns every record the user ever ingested, in insertion
// order. Duplicate species appear once per scan.
func (r *PlantRepository) ListHistory(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	query := `
		SELECT ` + plantColumns + `
		FROM user_history h
		JOIN plant_records p ON p.id = h.plant_id
		WHERE h.user_id = $1
		ORDER BY h.id ASC
	`
	return r.queryRecords(ctx, query, userID)
}

// ListCollection returns one representative record per distinct species
// the user has collected, in the order the species were first seen.
func (r *PlantRepository) ListCollection(ctx context.Context, userID string) ([]*models.PlantRecord, error) {
	query := `
		SELECT ` + plantColumns + `
		FROM user_collection c
		JOIN plant_records p ON p.id = c.plant_id
		WHERE c.user_id = $1
		ORDER BY c.created_at ASC, c.species_key ASC
	`
	return r.queryRecords(ctx, query, userID)
}
