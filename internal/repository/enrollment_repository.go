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

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentDetailColumns = `e.id, e.school_id, e.student_id, e.section_id, e.start_date, e.end_date,
        s.full_name AS student_name, sec.class_name AS class_name, sec.name AS section_name`

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, schoolID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN sections sec ON sec.id = e.section_id`
	conditions := []string{"e.school_id = $1"}
	args := []interface{}{schoolID}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.SectionID != "" {
		conditions = append(conditions, fmt.Sprintf("e.section_id = $%d", len(args)+1))
		args = append(args, filter.SectionID)
	}
	if filter.Active != nil {
		if *filter.Active {
			conditions = append(conditions, "e.end_date IS NULL")
		} else {
			conditions = append(conditions, "e.end_date IS NOT NULL")
		}
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"start_date":   "e.start_date",
		"student_name": "s.full_name",
		"section_name": "sec.name",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "start_date"
	}
	orderBy := allowedSorts[sortBy]
	if orderBy == "" {
		orderBy = "e.start_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d",
		enrollmentDetailColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindActiveByStudent returns the student's open enrollment with section
// context, or sql.ErrNoRows when the student has none.
func (r *EnrollmentRepository) FindActiveByStudent(ctx context.Context, schoolID, studentID string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        WHERE e.school_id = $1 AND e.student_id = $2 AND e.end_date IS NULL`, enrollmentDetailColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, schoolID, studentID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ListActiveBySection returns the section's open enrollments with student
// names, the cohort considered for ranking.
func (r *EnrollmentRepository) ListActiveBySection(ctx context.Context, schoolID, sectionID string) ([]models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN sections sec ON sec.id = e.section_id
        WHERE e.school_id = $1 AND e.section_id = $2 AND e.end_date IS NULL
        ORDER BY s.full_name ASC`, enrollmentDetailColumns)
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, schoolID, sectionID); err != nil {
		return nil, fmt.Errorf("list section enrollments: %w", err)
	}
	return enrollments, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.StartDate.IsZero() {
		enrollment.StartDate = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, school_id, student_id, section_id, start_date, end_date)
        VALUES (:id, :school_id, :student_id, :section_id, :start_date, :end_date)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// Close sets the end date on an enrollment.
func (r *EnrollmentRepository) Close(ctx context.Context, id string, endDate time.Time) error {
	const query = `UPDATE enrollments SET end_date = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, endDate); err != nil {
		return fmt.Errorf("close enrollment: %w", err)
	}
	return nil
}
