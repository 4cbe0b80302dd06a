package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, schoolID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindActiveByStudent(ctx context.Context, schoolID, studentID string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	Close(ctx context.Context, id string, endDate time.Time) error
}

// CreateEnrollmentInput places a student into a section.
type CreateEnrollmentInput struct {
	StudentID string     `json:"student_id" validate:"required,uuid"`
	SectionID string     `json:"section_id" validate:"required,uuid"`
	StartDate *time.Time `json:"start_date,omitempty"`
}

// EnrollmentService manages student section membership. A student has at
// most one active enrollment; enrolling again closes the previous one.
type EnrollmentService struct {
	repo     enrollmentRepository
	cache    cacheInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

func NewEnrollmentService(repo enrollmentRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, cache: cache, validate: validate, logger: logger}
}

func (s *EnrollmentService) List(ctx context.Context, schoolID string, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	enrollments, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, total, nil
}

// Enroll creates an active enrollment, closing any prior one first so the
// single-active invariant holds.
func (s *EnrollmentService) Enroll(ctx context.Context, schoolID string, input CreateEnrollmentInput) (*models.Enrollment, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	start := time.Now().UTC()
	if input.StartDate != nil {
		start = *input.StartDate
	}

	existing, err := s.repo.FindActiveByStudent(ctx, schoolID, input.StudentID)
	switch {
	case err == nil:
		if existing.SectionID == input.SectionID {
			return nil, appErrors.Clone(appErrors.ErrConflict, "student is already enrolled in this section")
		}
		if err := s.repo.Close(ctx, existing.ID, start); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close previous enrollment")
		}
	case errors.Is(err, sql.ErrNoRows):
		// No active enrollment; nothing to close.
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active enrollment")
	}

	enrollment := &models.Enrollment{
		SchoolID:  schoolID,
		StudentID: input.StudentID,
		SectionID: input.SectionID,
		StartDate: start,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	if s.cache != nil {
		s.cache.InvalidateSchool(ctx, schoolID)
	}
	s.logger.Info("student enrolled",
		zap.String("student_id", input.StudentID),
		zap.String("section_id", input.SectionID))
	return enrollment, nil
}

// Withdraw closes a student's active enrollment.
func (s *EnrollmentService) Withdraw(ctx context.Context, schoolID, studentID string) error {
	existing, err := s.repo.FindActiveByStudent(ctx, schoolID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNoActiveEnrollment
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active enrollment")
	}
	if err := s.repo.Close(ctx, existing.ID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to close enrollment")
	}
	if s.cache != nil {
		s.cache.InvalidateSchool(ctx, schoolID)
	}
	return nil
}
