package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/reportcard-api/internal/models"
)

// AssessmentRepository handles assessment persistence.
type AssessmentRepository struct {
	db *sqlx.DB
}

// NewAssessmentRepository creates a new assessment repository.
func NewAssessmentRepository(db *sqlx.DB) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

const assessmentColumns = `id, school_id, section_id, subject_id, title, max_marks, term_label, is_published, created_at, updated_at`

// List returns assessments matching the filter.
func (r *AssessmentRepository) List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, int, error) {
	conditions := []string{"school_id = $1"}
	args := []interface{}{schoolID}

	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.TermLabel != "" {
		conditions = append(conditions, fmt.Sprintf("term_label = $%d", len(args)+1))
		args = append(args, filter.TermLabel)
	}
	if filter.Published != nil {
		conditions = append(conditions, fmt.Sprintf("is_published = $%d", len(args)+1))
		args = append(args, *filter.Published)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s FROM assessments%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		assessmentColumns, clause, size, offset)
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list assessments: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM assessments" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count assessments: %w", err)
	}
	return assessments, total, nil
}

// ListPublishedBySection returns published assessments for a section,
// optionally filtered to a term. This is the staff-facing discovery path.
func (r *AssessmentRepository) ListPublishedBySection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.Assessment, error) {
	query := fmt.Sprintf(`SELECT %s FROM assessments
        WHERE school_id = $1 AND section_id = $2 AND is_published = TRUE`, assessmentColumns)
	args := []interface{}{schoolID, sectionID}
	if termLabel != nil && *termLabel != "" {
		query += " AND term_label = $3"
		args = append(args, *termLabel)
	}
	query += " ORDER BY created_at ASC"
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list published assessments: %w", err)
	}
	return assessments, nil
}

// ListByIDs fetches published assessments by identifier. Used by the
// marks-first discovery path where the caller may only read assessments it
// already holds marks for.
func (r *AssessmentRepository) ListByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Assessment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, schoolID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT %s FROM assessments
        WHERE school_id = $1 AND is_published = TRUE AND id IN (%s)
        ORDER BY created_at ASC`, assessmentColumns, strings.Join(placeholders, ","))
	var assessments []models.Assessment
	if err := r.db.SelectContext(ctx, &assessments, query, args...); err != nil {
		return nil, fmt.Errorf("list assessments by ids: %w", err)
	}
	return assessments, nil
}

// Create persists a new assessment.
func (r *AssessmentRepository) Create(ctx context.Context, assessment *models.Assessment) error {
	if assessment.ID == "" {
		assessment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}
	assessment.UpdatedAt = now
	const query = `INSERT INTO assessments (id, school_id, section_id, subject_id, title, max_marks, term_label, is_published, created_at, updated_at)
        VALUES (:id, :school_id, :section_id, :subject_id, :title, :max_marks, :term_label, :is_published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assessment); err != nil {
		return fmt.Errorf("create assessment: %w", err)
	}
	return nil
}

// SetPublished toggles the published flag.
func (r *AssessmentRepository) SetPublished(ctx context.Context, schoolID, id string, published bool) error {
	const query = `UPDATE assessments SET is_published = $3, updated_at = $4 WHERE school_id = $1 AND id = $2`
	result, err := r.db.ExecContext(ctx, query, schoolID, id, published, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("publish assessment: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
