package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type gradeScaleRepository interface {
	ListBySchool(ctx context.Context, schoolID string) ([]models.GradeThreshold, error)
	Replace(ctx context.Context, schoolID string, thresholds []models.GradeThreshold) error
}

// GradeThresholdInput is one band of a replacement scale.
type GradeThresholdInput struct {
	Label         string  `json:"label" validate:"required,max=8"`
	MinPercentage float64 `json:"min_percentage" validate:"gte=0,lte=100"`
	MaxPercentage float64 `json:"max_percentage" validate:"gte=0,lte=100"`
}

// GradeScaleService manages a school's grade threshold bands.
type GradeScaleService struct {
	repo     gradeScaleRepository
	validate *validator.Validate
	logger   *zap.Logger
}

func NewGradeScaleService(repo gradeScaleRepository, validate *validator.Validate, logger *zap.Logger) *GradeScaleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeScaleService{repo: repo, validate: validate, logger: logger}
}

// Get returns the school's configured bands sorted by minimum descending.
// An empty slice means the school runs on the built-in fallback scale.
func (s *GradeScaleService) Get(ctx context.Context, schoolID string) ([]models.GradeThreshold, error) {
	thresholds, err := s.repo.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grade scale")
	}
	sort.SliceStable(thresholds, func(i, j int) bool {
		return thresholds[i].MinPercentage > thresholds[j].MinPercentage
	})
	return thresholds, nil
}

// Replace swaps the school's whole scale atomically. Bands must be
// internally consistent (min <= max) and must not overlap each other.
func (s *GradeScaleService) Replace(ctx context.Context, schoolID string, inputs []GradeThresholdInput) ([]models.GradeThreshold, error) {
	if len(inputs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "at least one grade band is required")
	}
	for i, input := range inputs {
		if err := s.validate.Struct(input); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
				fmt.Sprintf("invalid grade band at index %d", i))
		}
		if input.MinPercentage > input.MaxPercentage {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("band %q has min above max", input.Label))
		}
	}

	thresholds := make([]models.GradeThreshold, len(inputs))
	for i, input := range inputs {
		thresholds[i] = models.GradeThreshold{
			SchoolID:      schoolID,
			Label:         input.Label,
			MinPercentage: input.MinPercentage,
			MaxPercentage: input.MaxPercentage,
		}
	}
	sort.SliceStable(thresholds, func(i, j int) bool {
		return thresholds[i].MinPercentage > thresholds[j].MinPercentage
	})
	for i := range thresholds {
		thresholds[i].SortOrder = i
		if i > 0 && thresholds[i].MaxPercentage > thresholds[i-1].MinPercentage {
			return nil, appErrors.Clone(appErrors.ErrValidation,
				fmt.Sprintf("band %q overlaps band %q", thresholds[i].Label, thresholds[i-1].Label))
		}
	}

	if err := s.repo.Replace(ctx, schoolID, thresholds); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace grade scale")
	}
	s.logger.Info("grade scale replaced",
		zap.String("school_id", schoolID),
		zap.Int("bands", len(thresholds)))
	return thresholds, nil
}
