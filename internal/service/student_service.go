package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type studentRepository interface {
	FindByID(ctx context.Context, schoolID, id string) (*models.Student, error)
	List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error)
}

// StudentService exposes student lookups.
type StudentService struct {
	repo   studentRepository
	logger *zap.Logger
}

func NewStudentService(repo studentRepository, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, logger: logger}
}

func (s *StudentService) Get(ctx context.Context, schoolID, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, schoolID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStudentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func (s *StudentService) List(ctx context.Context, schoolID string, filter models.StudentFilter) ([]models.Student, int, error) {
	students, total, err := s.repo.List(ctx, schoolID, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, total, nil
}
