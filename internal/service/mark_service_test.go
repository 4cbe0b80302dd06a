package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/models"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
)

type stubMarkRepo struct {
	saved []models.Mark
}

func (s *stubMarkRepo) Upsert(ctx context.Context, mark *models.Mark) error {
	s.saved = append(s.saved, *mark)
	return nil
}

func (s *stubMarkRepo) BulkUpsert(ctx context.Context, marks []models.Mark) error {
	s.saved = append(s.saved, marks...)
	return nil
}

type stubInvalidator struct {
	schools []string
}

func (s *stubInvalidator) InvalidateSchool(ctx context.Context, schoolID string) {
	s.schools = append(s.schools, schoolID)
}

const (
	testAssessmentID = "7b59f0a4-3e0a-4a6e-9d9a-1f2b3c4d5e6f"
	testStudentID    = "0f8fad5b-d9cb-469f-a165-70867728950e"
)

func newMarkFixture() (*MarkService, *stubMarkRepo, *stubInvalidator) {
	repo := &stubMarkRepo{}
	cache := &stubInvalidator{}
	assessments := &stubAssessmentReader{assessments: []models.Assessment{
		{ID: testAssessmentID, SectionID: "sec1", MaxMarks: 100, IsPublished: true},
	}}
	return NewMarkService(repo, assessments, cache, nil, nil), repo, cache
}

func TestRecordMark(t *testing.T) {
	svc, repo, cache := newMarkFixture()

	mark, err := svc.Record(context.Background(), "sch1", MarkInput{
		StudentID:    testStudentID,
		AssessmentID: testAssessmentID,
		Score:        floatPtr(72),
	})
	require.NoError(t, err)
	require.NotNil(t, mark.Score)
	assert.InDelta(t, 72, *mark.Score, 0.001)
	assert.Len(t, repo.saved, 1)
	assert.Equal(t, []string{"sch1"}, cache.schools)
}

func TestRecordMarkNilScore(t *testing.T) {
	svc, repo, _ := newMarkFixture()

	mark, err := svc.Record(context.Background(), "sch1", MarkInput{
		StudentID:    testStudentID,
		AssessmentID: testAssessmentID,
	})
	require.NoError(t, err)
	assert.Nil(t, mark.Score)
	assert.Len(t, repo.saved, 1)
}

func TestRecordMarkExceedsMax(t *testing.T) {
	svc, repo, cache := newMarkFixture()

	_, err := svc.Record(context.Background(), "sch1", MarkInput{
		StudentID:    testStudentID,
		AssessmentID: testAssessmentID,
		Score:        floatPtr(101),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.saved)
	assert.Empty(t, cache.schools)
}

func TestRecordMarkUnknownAssessment(t *testing.T) {
	svc, _, _ := newMarkFixture()

	_, err := svc.Record(context.Background(), "sch1", MarkInput{
		StudentID:    testStudentID,
		AssessmentID: "11111111-2222-3333-4444-555555555555",
		Score:        floatPtr(10),
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRecordBatchAllOrNothing(t *testing.T) {
	svc, repo, _ := newMarkFixture()

	_, err := svc.RecordBatch(context.Background(), "sch1", []MarkInput{
		{StudentID: testStudentID, AssessmentID: testAssessmentID, Score: floatPtr(50)},
		{StudentID: testStudentID, AssessmentID: testAssessmentID, Score: floatPtr(120)},
	})
	require.Error(t, err)
	assert.Empty(t, repo.saved)
}

func TestRecordBatchEmpty(t *testing.T) {
	svc, _, _ := newMarkFixture()

	_, err := svc.RecordBatch(context.Background(), "sch1", nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
