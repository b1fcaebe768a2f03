package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

const resolutionColumns = `id, sequence, workflow_id, item_id, name, kind, operation, choice, scope,
	target_name, error_message, created_at, updated_at, deleted_at`

// ResolutionRepository implements [models.Repository] for [models.ResolutionRecord] persistence.
//
// It also satisfies the resolver's Recorder interface through [ResolutionRepository.Create].
type ResolutionRepository struct {
	db *sql.DB
}

// NewResolutionRepository creates a new [ResolutionRepository] with the given database connection
func NewResolutionRepository(db *sql.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Create inserts a record with a generated ID and sequence
func (r *ResolutionRepository) Create(rec *models.ResolutionRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "resolutions")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	rec.SetID(shared.GenerateID())
	rec.SetSequence(sequence)

	query := `
		INSERT INTO resolutions (id, sequence, workflow_id, item_id, name, kind, operation, choice, scope,
			target_name, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		rec.ID(), rec.Sequence(), rec.WorkflowID(), rec.ItemID(), rec.Name(),
		rec.Kind().String(), rec.Operation().String(), rec.Choice().String(), string(rec.Scope()),
		nullString(rec.TargetName()), nullString(rec.ErrorMessage()), rec.CreatedAt(), rec.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resolution: %w", err)
	}

	return nil
}

// Get retrieves a record by ID, excluding soft-deleted records
func (r *ResolutionRepository) Get(id string) (*models.ResolutionRecord, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE id = ? AND deleted_at IS NULL`

	rec, err := scanResolution(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("resolution not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query resolution: %w", err)
	}
	return rec, nil
}

// Update rewrites the outcome fields of an existing record.
//
// Only the target name and error message change after creation.
func (r *ResolutionRepository) Update(rec *models.ResolutionRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	rec.SetUpdatedAt(now)

	query := `
		UPDATE resolutions
		SET target_name = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, nullString(rec.TargetName()), nullString(rec.ErrorMessage()), now, rec.ID())
	if err != nil {
		return fmt.Errorf("failed to update resolution: %w", err)
	}
	return expectAffected(result, "resolution", rec.ID())
}

// Delete soft-deletes a record by ID
func (r *ResolutionRepository) Delete(id string) error {
	query := `UPDATE resolutions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete resolution: %w", err)
	}
	return expectAffected(result, "resolution", id)
}

// List retrieves records matching criteria in sequence order, excluding soft-deleted records.
//
// Supported criteria keys: "workflow_id", "operation" (string form), "failed" (bool) and "limit" (int).
func (r *ResolutionRepository) List(criteria map[string]any) ([]*models.ResolutionRecord, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE deleted_at IS NULL`
	args := []any{}

	if workflowID, ok := criteria["workflow_id"].(string); ok && workflowID != "" {
		query += " AND workflow_id = ?"
		args = append(args, workflowID)
	}
	if op, ok := criteria["operation"].(string); ok && op != "" {
		query += " AND operation = ?"
		args = append(args, op)
	}
	if failed, ok := criteria["failed"].(bool); ok {
		if failed {
			query += " AND error_message IS NOT NULL"
		} else {
			query += " AND error_message IS NULL"
		}
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resolutions: %w", err)
	}
	defer rows.Close()

	var records []*models.ResolutionRecord
	for rows.Next() {
		rec, err := scanResolution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// ListByWorkflow returns every record of one workflow in resolution order.
func (r *ResolutionRepository) ListByWorkflow(workflowID string) ([]*models.ResolutionRecord, error) {
	return r.List(map[string]any{"workflow_id": workflowID})
}

func scanResolution(s scanner) (*models.ResolutionRecord, error) {
	var (
		id, workflowID, itemID, name string
		kind, operation, choice      string
		scope                        string
		sequence                     int
		targetName, errorMessage     sql.NullString
		createdAt, updatedAt         time.Time
		deletedAt                    sql.NullTime
	)

	err := s.Scan(&id, &sequence, &workflowID, &itemID, &name, &kind, &operation, &choice, &scope,
		&targetName, &errorMessage, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	k, err := models.ParseKind(kind)
	if err != nil {
		return nil, err
	}
	op, err := models.ParseOperation(operation)
	if err != nil {
		return nil, err
	}
	c, err := models.ParseChoice(choice)
	if err != nil {
		return nil, err
	}

	item := models.PendingItem{ID: itemID, Kind: k, DisplayLabel: name, RenameName: targetName.String}
	rec := models.NewResolutionRecord(workflowID, item, op, c, models.Scope(scope))
	rec.SetID(id)
	rec.SetSequence(sequence)
	rec.SetTargetName(targetName.String)
	rec.SetErrorMessage(errorMessage.String)
	rec.SetCreatedAt(createdAt)
	rec.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		rec.SetDeletedAt(&deletedAt.Time)
	}

	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func expectAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s not found or already deleted: %s", entity, id)
	}
	return nil
}

// Workflows returns the distinct workflow ids in the order they were first recorded.
func (r *ResolutionRepository) Workflows() ([]string, error) {
	query := `
		SELECT workflow_id FROM resolutions
		WHERE deleted_at IS NULL
		GROUP BY workflow_id
		ORDER BY MIN(sequence) ASC
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
