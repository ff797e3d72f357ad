package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/floworx/floworx-core/internal/common"
	"github.com/floworx/floworx-core/internal/model"
	"github.com/floworx/floworx-core/internal/service"
)

// SaveCorrection persists a correction. Corrections are append-only:
// inserting an existing ID is a duplicate-entry error, never an update.
func (s *SQLiteStorage) SaveCorrection(ctx context.Context, correction *model.CorrectionFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCorrection(correction); err != nil {
		return err
	}

	original, err := json.Marshal(correction.OriginalCategories)
	if err != nil {
		return fmt.Errorf("failed to encode original categories: %w", err)
	}
	corrected, err := json.Marshal(correction.CorrectedCategories)
	if err != nil {
		return fmt.Errorf("failed to encode corrected categories: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO corrections (
			id, tenant_id, email_subject,
			original_categories, corrected_categories,
			confidence_rating, correction_reason, training_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		correction.ID,
		correction.TenantID,
		correction.EmailSubject,
		string(original),
		string(corrected),
		correction.ConfidenceRating,
		correction.CorrectionReason,
		string(correction.TrainingStatus),
		correction.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: correction %s", common.ErrDuplicateEntry, correction.ID)
		}
		return fmt.Errorf("failed to save correction: %w", err)
	}
	return nil
}

// GetCorrections returns a tenant's corrections, newest first, narrowed by
// the filter.
func (s *SQLiteStorage) GetCorrections(ctx context.Context, tenantID string, filter service.CorrectionFilter) ([]model.CorrectionFeedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(tenantID, "tenantID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, email_subject,
			original_categories, corrected_categories,
			confidence_rating, correction_reason, training_status, created_at
		FROM corrections
		WHERE tenant_id = ?`
	args := []any{tenantID}

	if filter.Since != nil {
		query += " AND created_at >= ?"
		args = append(args, *filter.Since)
	}
	if filter.Status != "" {
		query += " AND training_status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.MinRating > 0 {
		query += " AND confidence_rating >= ?"
		args = append(args, filter.MinRating)
	}

	query += " ORDER BY created_at DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query corrections: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.CorrectionFeedback
	for rows.Next() {
		c, scanErr := scanCorrection(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corrections: %w", err)
	}
	return out, nil
}

// UpdateTrainingStatus advances a correction through the training pipeline.
// Only forward one-step transitions are allowed.
func (s *SQLiteStorage) UpdateTrainingStatus(ctx context.Context, correctionID string, status model.TrainingStatus) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(correctionID, "correctionID"); err != nil {
		return err
	}
	if !status.Valid() {
		return fmt.Errorf("%w: training status %q", ErrInvalidCorrection, status)
	}

	var current string
	err := s.db.QueryRowContext(ctx,
		"SELECT training_status FROM corrections WHERE id = ?", correctionID).Scan(&current)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: correction %s", common.ErrNotFound, correctionID)
	}
	if err != nil {
		return fmt.Errorf("failed to load correction: %w", err)
	}

	if !model.TrainingStatus(current).CanTransitionTo(status) {
		return fmt.Errorf("%w: illegal transition %s -> %s", ErrInvalidCorrection, current, status)
	}

	_, err = s.db.ExecContext(ctx,
		"UPDATE corrections SET training_status = ? WHERE id = ?", string(status), correctionID)
	if err != nil {
		return fmt.Errorf("failed to update training status: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCorrection(row rowScanner) (model.CorrectionFeedback, error) {
	var c model.CorrectionFeedback
	var original, corrected, status string

	err := row.Scan(
		&c.ID, &c.TenantID, &c.EmailSubject,
		&original, &corrected,
		&c.ConfidenceRating, &c.CorrectionReason, &status, &c.CreatedAt,
	)
	if err != nil {
		return model.CorrectionFeedback{}, fmt.Errorf("failed to scan correction: %w", err)
	}

	if err := json.Unmarshal([]byte(original), &c.OriginalCategories); err != nil {
		return model.CorrectionFeedback{}, fmt.Errorf("failed to decode original categories for %s: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(corrected), &c.CorrectedCategories); err != nil {
		return model.CorrectionFeedback{}, fmt.Errorf("failed to decode corrected categories for %s: %w", c.ID, err)
	}
	c.TrainingStatus = model.TrainingStatus(status)
	return c, nil
}
