package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classbridge/reportcard-api/internal/models"
)

// AttendanceRepository handles attendance persistence and tallies.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceTallySelect = `SELECT student_id,
        COUNT(*) FILTER (WHERE status = 'PRESENT') AS present,
        COUNT(*) FILTER (WHERE status = 'ABSENT')  AS absent,
        COUNT(*) FILTER (WHERE status = 'LATE')    AS late,
        COUNT(*) FILTER (WHERE status = 'EXCUSED') AS excused
        FROM attendance_entries`

// TallyByStudent returns raw status counts for one student.
func (r *AttendanceRepository) TallyByStudent(ctx context.Context, schoolID, studentID string) (*models.AttendanceTally, error) {
	query := attendanceTallySelect + ` WHERE school_id = $1 AND student_id = $2 GROUP BY student_id`
	var tally models.AttendanceTally
	if err := r.db.GetContext(ctx, &tally, query, schoolID, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No rows recorded is "no data", not an error.
			return &models.AttendanceTally{StudentID: studentID}, nil
		}
		return nil, fmt.Errorf("tally student attendance: %w", err)
	}
	return &tally, nil
}

// TallyBySection returns status counts keyed by student for a whole section.
func (r *AttendanceRepository) TallyBySection(ctx context.Context, schoolID, sectionID string) (map[string]models.AttendanceTally, error) {
	query := attendanceTallySelect + ` WHERE school_id = $1 AND section_id = $2 GROUP BY student_id`
	rows, err := r.db.QueryxContext(ctx, query, schoolID, sectionID)
	if err != nil {
		return nil, fmt.Errorf("tally section attendance: %w", err)
	}
	defer rows.Close()
	result := make(map[string]models.AttendanceTally)
	for rows.Next() {
		var tally models.AttendanceTally
		if err := rows.StructScan(&tally); err != nil {
			return nil, fmt.Errorf("scan attendance tally: %w", err)
		}
		result[tally.StudentID] = tally
	}
	return result, rows.Err()
}

// Create persists a single attendance entry.
func (r *AttendanceRepository) Create(ctx context.Context, entry *models.AttendanceEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO attendance_entries (id, school_id, student_id, section_id, date, status, notes, created_at)
        VALUES (:id, :school_id, :student_id, :section_id, :date, :status, :notes, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create attendance entry: %w", err)
	}
	return nil
}
