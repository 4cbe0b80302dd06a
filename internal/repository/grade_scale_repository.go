package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/reportcard-api/internal/models"
)

// GradeScaleRepository handles grade threshold persistence.
type GradeScaleRepository struct {
	db *sqlx.DB
}

// NewGradeScaleRepository constructs the repository.
func NewGradeScaleRepository(db *sqlx.DB) *GradeScaleRepository {
	return &GradeScaleRepository{db: db}
}

// ListBySchool returns the school's threshold bands in configured order.
func (r *GradeScaleRepository) ListBySchool(ctx context.Context, schoolID string) ([]models.GradeThreshold, error) {
	const query = `SELECT id, school_id, label, min_percentage, max_percentage, sort_order, created_at
        FROM grade_thresholds WHERE school_id = $1 ORDER BY sort_order ASC`
	var thresholds []models.GradeThreshold
	if err := r.db.SelectContext(ctx, &thresholds, query, schoolID); err != nil {
		return nil, fmt.Errorf("list grade thresholds: %w", err)
	}
	return thresholds, nil
}

// Replace swaps the school's whole threshold set atomically.
func (r *GradeScaleRepository) Replace(ctx context.Context, schoolID string, thresholds []models.GradeThreshold) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM grade_thresholds WHERE school_id = $1`, schoolID); err != nil {
		tx.Rollback() //nolint:errcheck
		return fmt.Errorf("clear grade thresholds: %w", err)
	}
	for i := range thresholds {
		if thresholds[i].ID == "" {
			thresholds[i].ID = uuid.NewString()
		}
		thresholds[i].SchoolID = schoolID
		if thresholds[i].CreatedAt.IsZero() {
			thresholds[i].CreatedAt = time.Now().UTC()
		}
		const query = `INSERT INTO grade_thresholds (id, school_id, label, min_percentage, max_percentage, sort_order, created_at)
                VALUES (:id, :school_id, :label, :min_percentage, :max_percentage, :sort_order, :created_at)`
		if _, err := tx.NamedExecContext(ctx, query, thresholds[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("insert grade threshold: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit grade thresholds: %w", err)
	}
	return nil
}
