package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/reportcard-api/internal/models"
)

// MarkRepository handles raw score persistence.
type MarkRepository struct {
	db *sqlx.DB
}

// NewMarkRepository creates a new mark repository.
func NewMarkRepository(db *sqlx.DB) *MarkRepository {
	return &MarkRepository{db: db}
}

const markColumns = `id, school_id, student_id, assessment_id, score, created_at, updated_at`

// ListByStudent returns every mark row recorded for a student. The
// marks-first discovery path anchors on this set.
func (r *MarkRepository) ListByStudent(ctx context.Context, schoolID, studentID string) ([]models.Mark, error) {
	query := fmt.Sprintf(`SELECT %s FROM marks WHERE school_id = $1 AND student_id = $2`, markColumns)
	var marks []models.Mark
	if err := r.db.SelectContext(ctx, &marks, query, schoolID, studentID); err != nil {
		return nil, fmt.Errorf("list student marks: %w", err)
	}
	return marks, nil
}

// FetchByAssessments returns marks for the given assessments keyed by
// student then assessment ID.
func (r *MarkRepository) FetchByAssessments(ctx context.Context, schoolID string, assessmentIDs []string) (map[string]map[string]*float64, error) {
	result := make(map[string]map[string]*float64)
	if len(assessmentIDs) == 0 {
		return result, nil
	}
	placeholders := make([]string, len(assessmentIDs))
	args := make([]interface{}, 0, len(assessmentIDs)+1)
	args = append(args, schoolID)
	for i, id := range assessmentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT %s FROM marks WHERE school_id = $1 AND assessment_id IN (%s)`,
		markColumns, strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch marks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var mark models.Mark
		if err := rows.StructScan(&mark); err != nil {
			return nil, fmt.Errorf("scan mark: %w", err)
		}
		student, ok := result[mark.StudentID]
		if !ok {
			student = make(map[string]*float64)
			result[mark.StudentID] = student
		}
		student[mark.AssessmentID] = mark.Score
	}
	return result, rows.Err()
}

// Upsert inserts or updates a mark row.
func (r *MarkRepository) Upsert(ctx context.Context, mark *models.Mark) error {
	if mark.ID == "" {
		mark.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if mark.CreatedAt.IsZero() {
		mark.CreatedAt = now
	}
	mark.UpdatedAt = now
	const query = `INSERT INTO marks (id, school_id, student_id, assessment_id, score, created_at, updated_at)
        VALUES (:id, :school_id, :student_id, :assessment_id, :score, :created_at, :updated_at)
        ON CONFLICT (school_id, student_id, assessment_id)
        DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, mark); err != nil {
		return fmt.Errorf("upsert mark: %w", err)
	}
	return nil
}

// BulkUpsert inserts or updates multiple marks in a transaction.
func (r *MarkRepository) BulkUpsert(ctx context.Context, marks []models.Mark) error {
	if len(marks) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for i := range marks {
		if marks[i].ID == "" {
			marks[i].ID = uuid.NewString()
		}
		now := time.Now().UTC()
		if marks[i].CreatedAt.IsZero() {
			marks[i].CreatedAt = now
		}
		marks[i].UpdatedAt = now
		const query = `INSERT INTO marks (id, school_id, student_id, assessment_id, score, created_at, updated_at)
                VALUES (:id, :school_id, :student_id, :assessment_id, :score, :created_at, :updated_at)
                ON CONFLICT (school_id, student_id, assessment_id)
                DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
		if _, err := tx.NamedExecContext(ctx, query, marks[i]); err != nil {
			tx.Rollback() //nolint:errcheck
			return fmt.Errorf("bulk upsert mark: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit marks: %w", err)
	}
	return nil
}
