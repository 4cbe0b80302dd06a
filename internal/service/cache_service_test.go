package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type memoryCacheStore struct {
	entries  map[string][]byte
	patterns []string
}

func newMemoryCacheStore() *memoryCacheStore {
	return &memoryCacheStore{entries: map[string][]byte{}}
}

func (s *memoryCacheStore) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (s *memoryCacheStore) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = data
	return nil
}

func (s *memoryCacheStore) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.entries = map[string][]byte{}
	return nil
}

func TestReportCacheRoundTrip(t *testing.T) {
	store := newMemoryCacheStore()
	cache := NewReportCacheService(store, time.Minute, true, nil)

	_, err := cache.GetSection(context.Background(), "sch1", "sec1", nil)
	require.Error(t, err)

	cards := []models.ReportCard{{StudentID: "stu-1", StudentName: "Alice", OverallGrade: "A"}}
	cache.PutSection(context.Background(), "sch1", "sec1", nil, cards)

	got, err := cache.GetSection(context.Background(), "sch1", "sec1", nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].StudentName)
}

func TestReportCacheKeysAreTermScoped(t *testing.T) {
	store := newMemoryCacheStore()
	cache := NewReportCacheService(store, time.Minute, true, nil)

	term := "T1"
	cache.PutSection(context.Background(), "sch1", "sec1", &term, []models.ReportCard{{StudentID: "stu-1"}})

	// The all-terms batch is a separate entry.
	_, err := cache.GetSection(context.Background(), "sch1", "sec1", nil)
	require.Error(t, err)

	got, err := cache.GetSection(context.Background(), "sch1", "sec1", &term)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestReportCacheInvalidateSchool(t *testing.T) {
	store := newMemoryCacheStore()
	cache := NewReportCacheService(store, time.Minute, true, nil)

	cache.PutSection(context.Background(), "sch1", "sec1", nil, []models.ReportCard{{StudentID: "stu-1"}})
	cache.InvalidateSchool(context.Background(), "sch1")

	assert.Equal(t, []string{"reports:sch1:*"}, store.patterns)
	_, err := cache.GetSection(context.Background(), "sch1", "sec1", nil)
	require.Error(t, err)
}

func TestReportCacheDisabled(t *testing.T) {
	store := newMemoryCacheStore()
	cache := NewReportCacheService(store, time.Minute, false, nil)

	cache.PutSection(context.Background(), "sch1", "sec1", nil, []models.ReportCard{{StudentID: "stu-1"}})
	assert.Empty(t, store.entries)

	_, err := cache.GetSection(context.Background(), "sch1", "sec1", nil)
	require.ErrorIs(t, err, appErrors.ErrCacheMiss)
}
