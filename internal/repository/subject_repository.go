package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/classbridge/reportcard-api/internal/models"
)

// SubjectRepository handles subject lookups.
type SubjectRepository struct {
	db *sqlx.DB
}

// NewSubjectRepository constructs the repository.
func NewSubjectRepository(db *sqlx.DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// List returns subjects for a school.
func (r *SubjectRepository) List(ctx context.Context, schoolID string, filter models.SubjectFilter) ([]models.Subject, error) {
	query := `SELECT id, school_id, code, name, created_at, updated_at FROM subjects WHERE school_id = $1`
	args := []interface{}{schoolID}
	if filter.Search != "" {
		query += " AND (name ILIKE $2 OR code ILIKE $2)"
		args = append(args, "%"+filter.Search+"%")
	}
	query += " ORDER BY name ASC"
	var subjects []models.Subject
	if err := r.db.SelectContext(ctx, &subjects, query, args...); err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	return subjects, nil
}

// MapNamesByIDs returns subject id → name for the given identifiers.
func (r *SubjectRepository) MapNamesByIDs(ctx context.Context, schoolID string, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, schoolID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}
	query := fmt.Sprintf(`SELECT id, name FROM subjects WHERE school_id = $1 AND id IN (%s)`,
		strings.Join(placeholders, ","))
	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("map subjects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
