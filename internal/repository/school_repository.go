package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/classbridge/reportcard-api/internal/models"
)

// SchoolRepository resolves tenant records.
type SchoolRepository struct {
	db *sqlx.DB
}

// NewSchoolRepository constructs the repository.
func NewSchoolRepository(db *sqlx.DB) *SchoolRepository {
	return &SchoolRepository{db: db}
}

// FindBySlug returns the school registered under the URL slug.
func (r *SchoolRepository) FindBySlug(ctx context.Context, slug string) (*models.School, error) {
	const query = `SELECT id, slug, name, active, created_at, updated_at FROM schools WHERE slug = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, slug); err != nil {
		return nil, err
	}
	return &school, nil
}

// FindByID returns a school by its identifier.
func (r *SchoolRepository) FindByID(ctx context.Context, id string) (*models.School, error) {
	const query = `SELECT id, slug, name, active, created_at, updated_at FROM schools WHERE id = $1`
	var school models.School
	if err := r.db.GetContext(ctx, &school, query, id); err != nil {
		return nil, fmt.Errorf("find school: %w", err)
	}
	return &school, nil
}
