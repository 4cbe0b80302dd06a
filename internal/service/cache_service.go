package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type cacheStore interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ReportCacheService memoizes generated section report batches in Redis.
// Any write that can change a report (marks, publishes, scale edits) clears
// the school's whole cache slice; correctness beats cache hit rate here.
type ReportCacheService struct {
	store   cacheStore
	ttl     time.Duration
	enabled bool
	logger  *zap.Logger
}

func NewReportCacheService(store cacheStore, ttl time.Duration, enabled bool, logger *zap.Logger) *ReportCacheService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &ReportCacheService{store: store, ttl: ttl, enabled: enabled && store != nil, logger: logger}
}

func sectionReportKey(schoolID, sectionID string, termLabel *string) string {
	term := "all"
	if termLabel != nil && *termLabel != "" {
		term = *termLabel
	}
	return fmt.Sprintf("reports:%s:section:%s:%s", schoolID, sectionID, term)
}

// GetSection returns the cached batch for a section, or ErrCacheMiss.
func (s *ReportCacheService) GetSection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.ReportCard, error) {
	if !s.enabled {
		return nil, appErrors.ErrCacheMiss
	}
	var cards []models.ReportCard
	if err := s.store.Get(ctx, sectionReportKey(schoolID, sectionID, termLabel), &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// PutSection stores a generated batch. Failures are logged and swallowed;
// the caller already has the cards.
func (s *ReportCacheService) PutSection(ctx context.Context, schoolID, sectionID string, termLabel *string, cards []models.ReportCard) {
	if !s.enabled {
		return
	}
	if err := s.store.Set(ctx, sectionReportKey(schoolID, sectionID, termLabel), cards, s.ttl); err != nil {
		s.logger.Warn("failed to cache section reports", zap.Error(err))
	}
}

// InvalidateSchool drops every cached report batch for the school.
func (s *ReportCacheService) InvalidateSchool(ctx context.Context, schoolID string) {
	if !s.enabled {
		return
	}
	if err := s.store.DeleteByPattern(ctx, fmt.Sprintf("reports:%s:*", schoolID)); err != nil {
		s.logger.Warn("failed to invalidate report cache",
			zap.String("school_id", schoolID),
			zap.Error(err))
	}
}
