package service

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/pkg/storage"
)

type stubSectionReports struct {
	cards []models.ReportCard
	err   error
}

func (s *stubSectionReports) GenerateSection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.ReportCard, error) {
	return s.cards, s.err
}

type memoryStorage struct {
	files map[string][]byte
}

func (s *memoryStorage) Save(schoolID, filename string, data []byte) (string, error) {
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	rel := schoolID + "/" + filename
	s.files[rel] = data
	return rel, nil
}

func (s *memoryStorage) Open(relPath string) (*os.File, error) { return nil, os.ErrNotExist }
func (s *memoryStorage) Delete(relPath string) error           { delete(s.files, relPath); return nil }
func (s *memoryStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

func intPtr(v int) *int { return &v }

func sampleCards() []models.ReportCard {
	return []models.ReportCard{
		{
			StudentID: "stu-a", StudentName: "Alice", ClassName: "Grade 8", SectionName: "B",
			Subjects: []models.SubjectResult{
				{SubjectName: "Mathematics", TotalObtained: 110, TotalMax: 150, Percentage: 73.33, Grade: "B"},
			},
			GrandTotalObtained: 110, GrandTotalMax: 150, OverallPercentage: 73.33, OverallGrade: "B",
			Rank: intPtr(1), CohortSize: 2,
		},
		{
			StudentID: "stu-b", StudentName: "Bob", ClassName: "Grade 8", SectionName: "B",
			Subjects: []models.SubjectResult{
				{SubjectName: "Mathematics", TotalObtained: 70, TotalMax: 150, Percentage: 46.67, Grade: "F"},
			},
			GrandTotalObtained: 70, GrandTotalMax: 150, OverallPercentage: 46.67, OverallGrade: "F",
			Rank: intPtr(2), CohortSize: 2,
		},
	}
}

func newExportFixture(cards []models.ReportCard) (*ExportService, *memoryStorage) {
	files := &memoryStorage{}
	signer := storage.NewDownloadSigner("test-secret", time.Hour)
	svc := NewExportService(&stubSectionReports{cards: cards}, files, signer,
		ExportConfig{APIPrefix: "/api/v1"}, nil, nil, nil)
	return svc, files
}

func TestExportGenerateCSV(t *testing.T) {
	svc, files := newExportFixture(sampleCards())

	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID: "job-1", SchoolID: "sch1",
		Params: models.ExportJobParams{SectionID: "sec-1", Format: models.ExportFormatCSV},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ExportFormatCSV, result.Format)
	assert.Contains(t, result.URL, "/api/v1/report-exports/download/")
	assert.True(t, strings.HasSuffix(result.URL, result.Token))

	data := string(files.files[result.RelativePath])
	lines := strings.Split(strings.TrimSpace(data), "\n")
	// Header, then a subject and an overall row per student.
	require.Len(t, lines, 5)
	assert.Equal(t, "Student,Class,Section,Subject,Obtained,Max,Percentage,Grade,Rank,Cohort Size", lines[0])
	assert.Equal(t, "Alice,Grade 8,B,Mathematics,110.00,150.00,73.33,B,,", lines[1])
	assert.Equal(t, "Alice,Grade 8,B,OVERALL,110.00,150.00,73.33,B,1,2", lines[2])
	assert.Equal(t, "Bob,Grade 8,B,OVERALL,70.00,150.00,46.67,F,2,2", lines[4])

	jobID, relPath, _, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, result.RelativePath, relPath)
}

func TestExportGeneratePDF(t *testing.T) {
	svc, files := newExportFixture(sampleCards())

	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID: "job-2", SchoolID: "sch1",
		Params: models.ExportJobParams{SectionID: "sec-1", Format: models.ExportFormatPDF},
	})
	require.NoError(t, err)
	data := files.files[result.RelativePath]
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
	assert.True(t, strings.HasSuffix(result.RelativePath, ".pdf"))
}

func TestExportGenerateFilenameCarriesTerm(t *testing.T) {
	svc, _ := newExportFixture(sampleCards())
	term := "Term 1"

	result, err := svc.Generate(context.Background(), &models.ExportJob{
		ID: "job-3", SchoolID: "sch1",
		Params: models.ExportJobParams{SectionID: "sec-1", TermLabel: &term, Format: models.ExportFormatCSV},
	})
	require.NoError(t, err)
	assert.Contains(t, result.RelativePath, "report_cards_Term_1_")
}

func TestExportGenerateRejectsUnknownFormat(t *testing.T) {
	svc, _ := newExportFixture(sampleCards())

	_, err := svc.Generate(context.Background(), &models.ExportJob{
		ID: "job-4", SchoolID: "sch1",
		Params: models.ExportJobParams{SectionID: "sec-1", Format: models.ExportFormat("xlsx")},
	})
	require.Error(t, err)
}
