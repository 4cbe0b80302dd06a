package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type markRepository interface {
	Upsert(ctx context.Context, mark *models.Mark) error
	BulkUpsert(ctx context.Context, marks []models.Mark) error
}

type markAssessmentReader interface {
	ListByIDs(ctx context.Context, schoolID string, ids []string) ([]models.Assessment, error)
}

// MarkInput is a single score entry. A nil score records the student as
// ungraded for the assessment; it still counts toward report denominators.
type MarkInput struct {
	StudentID    string   `json:"student_id" validate:"required,uuid"`
	AssessmentID string   `json:"assessment_id" validate:"required,uuid"`
	Score        *float64 `json:"score,omitempty" validate:"omitempty,gte=0"`
}

// MarkService records scores against assessments.
type MarkService struct {
	repo        markRepository
	assessments markAssessmentReader
	cache       cacheInvalidator
	validate    *validator.Validate
	logger      *zap.Logger
}

func NewMarkService(repo markRepository, assessments markAssessmentReader, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger) *MarkService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MarkService{repo: repo, assessments: assessments, cache: cache, validate: validate, logger: logger}
}

// Record upserts one mark. Re-recording the same student and assessment
// overwrites the previous score.
func (s *MarkService) Record(ctx context.Context, schoolID string, input MarkInput) (*models.Mark, error) {
	marks, err := s.RecordBatch(ctx, schoolID, []MarkInput{input})
	if err != nil {
		return nil, err
	}
	return &marks[0], nil
}

// RecordBatch upserts a batch of marks in one transaction. Every score is
// checked against its assessment's maximum before anything is written.
func (s *MarkService) RecordBatch(ctx context.Context, schoolID string, inputs []MarkInput) ([]models.Mark, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no marks supplied")
	}
	ids := make([]string, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		if err := s.validate.Struct(input); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("invalid mark at index %d", i))
		}
		if !seen[input.AssessmentID] {
			ids = append(ids, input.AssessmentID)
			seen[input.AssessmentID] = true
		}
	}

	assessments, err := s.assessments.ListByIDs(ctx, schoolID, ids)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assessments")
	}
	maxByID := make(map[string]float64, len(assessments))
	for _, assessment := range assessments {
		maxByID[assessment.ID] = assessment.MaxMarks
	}

	marks := make([]models.Mark, len(inputs))
	for i, input := range inputs {
		max, ok := maxByID[input.AssessmentID]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("assessment %s not found or not published", input.AssessmentID))
		}
		if input.Score != nil && *input.Score > max {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("score %.2f exceeds maximum %.2f", *input.Score, max))
		}
		marks[i] = models.Mark{
			SchoolID:     schoolID,
			StudentID:    input.StudentID,
			AssessmentID: input.AssessmentID,
			Score:        input.Score,
		}
	}

	if err := s.repo.BulkUpsert(ctx, marks); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save marks")
	}
	if s.cache != nil {
		s.cache.InvalidateSchool(ctx, schoolID)
	}
	s.logger.Info("marks recorded",
		zap.String("school_id", schoolID),
		zap.Int("count", len(marks)))
	return marks, nil
}
