package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/dto"
	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/internal/repository"
	appErrors "github.com/classbridge/reportcard-api/pkg/errors"
	"github.com/classbridge/reportcard-api/pkg/jobs"
)

type stubJobStore struct {
	jobs    map[string]*models.ExportJob
	nextID  int
	updates []repository.UpdateExportJobParams
}

func newStubJobStore() *stubJobStore {
	return &stubJobStore{jobs: map[string]*models.ExportJob{}}
}

func (s *stubJobStore) Create(ctx context.Context, job *models.ExportJob) error {
	s.nextID++
	job.ID = "job-" + string(rune('0'+s.nextID))
	s.jobs[job.ID] = job
	return nil
}

func (s *stubJobStore) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	if job, ok := s.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubJobStore) Update(ctx context.Context, id string, params repository.UpdateExportJobParams) error {
	s.updates = append(s.updates, params)
	job, ok := s.jobs[id]
	if !ok {
		return sql.ErrNoRows
	}
	if params.Status != nil {
		job.Status = *params.Status
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
	}
	if params.ResultURL != nil {
		job.ResultURL = params.ResultURL
	}
	if params.ErrorMessage != nil {
		job.ErrorMessage = params.ErrorMessage
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	return nil
}

func (s *stubJobStore) ListQueued(ctx context.Context, limit int) ([]models.ExportJob, error) {
	var queued []models.ExportJob
	for _, job := range s.jobs {
		if job.Status == models.ExportStatusQueued {
			queued = append(queued, *job)
		}
	}
	return queued, nil
}

func (s *stubJobStore) ListFinishedBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.ExportJob, error) {
	return nil, nil
}

type stubDispatcher struct {
	enqueued []jobs.Job
	fail     bool
}

func (s *stubDispatcher) Enqueue(job jobs.Job) error {
	if s.fail {
		return errors.New("queue full")
	}
	s.enqueued = append(s.enqueued, job)
	return nil
}

type stubExportGenerator struct {
	result *ExportResult
	err    error
	calls  int
}

func (s *stubExportGenerator) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	s.calls++
	return s.result, s.err
}

func TestCreateJobQueues(t *testing.T) {
	store := newStubJobStore()
	queue := &stubDispatcher{}
	svc := NewExportJobService(store, queue, nil, nil, ExportJobConfig{})

	resp, err := svc.CreateJob(context.Background(), "sch1", dto.ExportRequest{
		SectionID: testSectionID,
		Format:    models.ExportFormatCSV,
	}, "usr-1")
	require.NoError(t, err)
	assert.Equal(t, models.ExportStatusQueued, resp.Status)
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, resp.ID, queue.enqueued[0].ID)
}

func TestCreateJobRejectsBadFormat(t *testing.T) {
	svc := NewExportJobService(newStubJobStore(), &stubDispatcher{}, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), "sch1", dto.ExportRequest{
		SectionID: testSectionID,
		Format:    models.ExportFormat("xlsx"),
	}, "usr-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreateJobMarksFailedWhenEnqueueFails(t *testing.T) {
	store := newStubJobStore()
	svc := NewExportJobService(store, &stubDispatcher{fail: true}, nil, nil, ExportJobConfig{})

	_, err := svc.CreateJob(context.Background(), "sch1", dto.ExportRequest{
		SectionID: testSectionID,
		Format:    models.ExportFormatPDF,
	}, "usr-1")
	require.Error(t, err)
	require.Len(t, store.jobs, 1)
	for _, job := range store.jobs {
		assert.Equal(t, models.ExportStatusFailed, job.Status)
	}
}

func TestGetStatusScoping(t *testing.T) {
	store := newStubJobStore()
	job := &models.ExportJob{SchoolID: "sch1", Status: models.ExportStatusQueued, CreatedBy: "usr-owner"}
	require.NoError(t, store.Create(context.Background(), job))
	svc := NewExportJobService(store, &stubDispatcher{}, nil, nil, ExportJobConfig{})

	// Principal of the same school sees any job.
	resp, err := svc.GetStatus(context.Background(), "sch1", job.ID, "usr-other", models.RolePrincipal)
	require.NoError(t, err)
	assert.Equal(t, job.ID, resp.ID)

	// Another school's job reads as not found, not forbidden.
	_, err = svc.GetStatus(context.Background(), "sch2", job.ID, "usr-other", models.RolePrincipal)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	// Teachers only see their own jobs.
	_, err = svc.GetStatus(context.Background(), "sch1", job.ID, "usr-other", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	_, err = svc.GetStatus(context.Background(), "sch1", "job-missing", "usr-owner", models.RoleTeacher)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRecoverPendingJobs(t *testing.T) {
	store := newStubJobStore()
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{
		SchoolID: "sch1", Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}))
	require.NoError(t, store.Create(context.Background(), &models.ExportJob{
		SchoolID: "sch1", Status: models.ExportStatusFinished,
		Params: models.ExportJobParams{Format: models.ExportFormatCSV},
	}))
	queue := &stubDispatcher{}
	svc := NewExportJobService(store, queue, nil, nil, ExportJobConfig{})

	svc.RecoverPendingJobs(context.Background())
	assert.Len(t, queue.enqueued, 1)
}

func TestExportWorkerFinishesJob(t *testing.T) {
	store := newStubJobStore()
	job := &models.ExportJob{
		SchoolID: "sch1", Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{SectionID: testSectionID, Format: models.ExportFormatCSV},
	}
	require.NoError(t, store.Create(context.Background(), job))

	gen := &stubExportGenerator{result: &ExportResult{
		RelativePath: "sch1/report_cards_all.csv",
		URL:          "http://localhost/api/v1/report-exports/download/tok",
		Format:       models.ExportFormatCSV,
	}}
	worker := NewExportWorker(store, gen, nil, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1})
	require.NoError(t, err)

	stored := store.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFinished, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	require.NotNil(t, stored.ResultURL)
	assert.Contains(t, *stored.ResultURL, "/report-exports/download/")
	assert.NotNil(t, stored.FinishedAt)
}

func TestExportWorkerRequeuesOnTransientFailure(t *testing.T) {
	store := newStubJobStore()
	job := &models.ExportJob{
		SchoolID: "sch1", Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{SectionID: testSectionID, Format: models.ExportFormatCSV},
	}
	require.NoError(t, store.Create(context.Background(), job))

	gen := &stubExportGenerator{err: errors.New("section temporarily unavailable")}
	worker := NewExportWorker(store, gen, nil, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 1})
	require.Error(t, err)
	assert.Equal(t, models.ExportStatusQueued, store.jobs[job.ID].Status)
	assert.Equal(t, 0, store.jobs[job.ID].Progress)
}

func TestExportWorkerFailsAfterMaxRetries(t *testing.T) {
	store := newStubJobStore()
	job := &models.ExportJob{
		SchoolID: "sch1", Status: models.ExportStatusQueued,
		Params: models.ExportJobParams{SectionID: testSectionID, Format: models.ExportFormatPDF},
	}
	require.NoError(t, store.Create(context.Background(), job))

	gen := &stubExportGenerator{err: errors.New("renderer crashed")}
	worker := NewExportWorker(store, gen, nil, 3, nil)

	err := worker.Handle(context.Background(), jobs.Job{ID: job.ID, Attempt: 3})
	require.Error(t, err)
	stored := store.jobs[job.ID]
	assert.Equal(t, models.ExportStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "renderer crashed", *stored.ErrorMessage)
	assert.NotNil(t, stored.FinishedAt)
}
