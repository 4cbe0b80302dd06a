package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type assessmentRepository interface {
	List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, int, error)
	Create(ctx context.Context, assessment *models.Assessment) error
	SetPublished(ctx context.Context, schoolID, id string, published bool) error
}

type cacheInvalidator interface {
	InvalidateSchool(ctx context.Context, schoolID string)
}

// CreateAssessmentInput is the payload for defining an assessment.
type CreateAssessmentInput struct {
	SectionID string  `json:"section_id" validate:"required,uuid"`
	SubjectID *string `json:"subject_id,omitempty" validate:"omitempty,uuid"`
	Title     string  `json:"title" validate:"required,max=160"`
	MaxMarks  float64 `json:"max_marks" validate:"gt=0"`
	TermLabel *string `json:"term_label,omitempty" validate:"omitempty,max=40"`
}

// AssessmentService manages assessment definitions and their publish state.
type AssessmentService struct {
	repo     assessmentRepository
	cache    cacheInvalidator
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAssessmentService(repo assessmentRepository, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *AssessmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssessmentService{repo: repo, cache: cache, validate: validate, logger: logger}
}

func (s *AssessmentService) List(ctx context.Context, schoolID string, filter models.AssessmentFilter) ([]models.Assessment, int, error) {
	assessments, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assessments")
	}
	return assessments, total, nil
}

// Create registers a new assessment. Assessments start unpublished and stay
// invisible to report generation until published.
func (s *AssessmentService) Create(ctx context.Context, schoolID string, input CreateAssessmentInput) (*models.Assessment, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assessment payload")
	}
	assessment := &models.Assessment{
		SchoolID:  schoolID,
		SectionID: input.SectionID,
		SubjectID: input.SubjectID,
		Title:     input.Title,
		MaxMarks:  input.MaxMarks,
		TermLabel: input.TermLabel,
	}
	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assessment")
	}
	s.logger.Info("assessment created",
		zap.String("assessment_id", assessment.ID),
		zap.String("section_id", assessment.SectionID))
	return assessment, nil
}

// SetPublished flips an assessment's visibility and invalidates any cached
// report cards for the school.
func (s *AssessmentService) SetPublished(ctx context.Context, schoolID, id string, published bool) error {
	if err := s.repo.SetPublished(ctx, schoolID, id, published); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assessment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assessment")
	}
	if s.cache != nil {
		s.cache.InvalidateSchool(ctx, schoolID)
	}
	s.logger.Info("assessment publish state changed",
		zap.String("assessment_id", id),
		zap.Bool("published", published))
	return nil
}
