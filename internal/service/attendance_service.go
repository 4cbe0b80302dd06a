package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type attendanceRepository interface {
	TallyByStudent(ctx context.Context, schoolID, studentID string) (*models.AttendanceTally, error)
	Create(ctx context.Context, entry *models.AttendanceEntry) error
}

// RecordAttendanceInput is one day's status for one student.
type RecordAttendanceInput struct {
	StudentID string                  `json:"student_id" validate:"required,uuid"`
	SectionID string                  `json:"section_id" validate:"required,uuid"`
	Date      time.Time               `json:"date" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required"`
}

// AttendanceService records daily attendance and answers summary queries.
type AttendanceService struct {
	repo     attendanceRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAttendanceService(repo attendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validate: validate, logger: logger}
}

func (s *AttendanceService) Record(ctx context.Context, schoolID string, input RecordAttendanceInput) (*models.AttendanceEntry, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !input.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	entry := &models.AttendanceEntry{
		SchoolID:  schoolID,
		StudentID: input.StudentID,
		SectionID: input.SectionID,
		Date:      input.Date,
		Status:    input.Status,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return entry, nil
}

// Summary returns a student's attendance totals. Late arrivals count toward
// the present figure; a student with no entries gets an all-zero summary.
func (s *AttendanceService) Summary(ctx context.Context, schoolID, studentID string) (*models.AttendanceSummary, error) {
	tally, err := s.repo.TallyByStudent(ctx, schoolID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	total := tally.Total()
	present := tally.Present + tally.Late
	summary := &models.AttendanceSummary{
		Present: present,
		Absent:  total - present,
		Total:   total,
		Percent: percentage(float64(present), float64(total)),
	}
	return summary, nil
}
