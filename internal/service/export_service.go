package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/classbridge/reportcard-api/internal/models"
	"github.com/classbridge/reportcard-api/pkg/export"
	"github.com/classbridge/reportcard-api/pkg/storage"
)

type sectionReportGenerator interface {
	GenerateSection(ctx context.Context, schoolID, sectionID string, termLabel *string) ([]models.ReportCard, error)
}

type fileStorage interface {
	Save(schoolID, filename string, data []byte) (string, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	RenderCards(title string, cards []export.ReportCardDoc) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// ExportService regenerates a section's report cards and persists the
// rendered file. The CSV layout is one row per student per subject plus an
// overall row; the PDF is one page per student.
type ExportService struct {
	reports sectionReportGenerator
	storage fileStorage
	csv     csvRenderer
	pdf     pdfRenderer
	signer  *storage.DownloadSigner
	logger  *zap.Logger
	cfg     ExportConfig
}

// NewExportService constructs an ExportService.
func NewExportService(reports sectionReportGenerator, files fileStorage, signer *storage.DownloadSigner, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		reports: reports,
		storage: files,
		csv:     csv,
		pdf:     pdf,
		signer:  signer,
		logger:  logger,
		cfg:     cfg,
	}
}

// Generate renders the job's section batch and stores the result file.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	cards, err := s.reports.GenerateSection(ctx, job.SchoolID, job.Params.SectionID, job.Params.TermLabel)
	if err != nil {
		return nil, err
	}

	var payload []byte
	switch job.Params.Format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(buildCardDataset(cards))
	case models.ExportFormatPDF:
		payload, err = s.pdf.RenderCards(exportTitle(cards), flattenCards(cards))
	default:
		err = fmt.Errorf("unsupported format %s", job.Params.Format)
	}
	if err != nil {
		return nil, err
	}

	relPath, err := s.storage.Save(job.SchoolID, s.buildFilename(job), payload)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.signer.Sign(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}

	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/report-exports/download/%s", prefix, token),
		Format:       job.Params.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (jobID, relPath string, expiresAt time.Time, err error) {
	return s.signer.Verify(token, allowExpired)
}

// Open returns a handle to the stored file.
func (s *ExportService) Open(relPath string) (*os.File, error) {
	return s.storage.Open(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to ResultTTL when <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildFilename(job *models.ExportJob) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	termPart := "all"
	if job.Params.TermLabel != nil && *job.Params.TermLabel != "" {
		termPart = sanitizeFilename(*job.Params.TermLabel)
	}
	return fmt.Sprintf("report_cards_%s_%s.%s", termPart, timestamp, job.Params.Format)
}

func sanitizeFilename(raw string) string {
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}

var cardCSVHeaders = []string{
	"Student", "Class", "Section", "Subject", "Obtained", "Max", "Percentage", "Grade", "Rank", "Cohort Size",
}

func buildCardDataset(cards []models.ReportCard) export.Dataset {
	rows := make([][]string, 0, len(cards)*4)
	for _, card := range cards {
		rank := ""
		if card.Rank != nil {
			rank = fmt.Sprintf("%d", *card.Rank)
		}
		for _, subject := range card.Subjects {
			rows = append(rows, []string{
				card.StudentName, card.ClassName, card.SectionName, subject.SubjectName,
				fmt.Sprintf("%.2f", subject.TotalObtained),
				fmt.Sprintf("%.2f", subject.TotalMax),
				fmt.Sprintf("%.2f", subject.Percentage),
				subject.Grade,
				"", "",
			})
		}
		rows = append(rows, []string{
			card.StudentName, card.ClassName, card.SectionName, "OVERALL",
			fmt.Sprintf("%.2f", card.GrandTotalObtained),
			fmt.Sprintf("%.2f", card.GrandTotalMax),
			fmt.Sprintf("%.2f", card.OverallPercentage),
			card.OverallGrade,
			rank,
			fmt.Sprintf("%d", card.CohortSize),
		})
	}
	return export.Dataset{Headers: cardCSVHeaders, Rows: rows}
}

func flattenCards(cards []models.ReportCard) []export.ReportCardDoc {
	docs := make([]export.ReportCardDoc, 0, len(cards))
	for _, card := range cards {
		doc := export.ReportCardDoc{
			StudentName: card.StudentName,
			ClassName:   card.ClassName,
			SectionName: card.SectionName,
			TotalLine: fmt.Sprintf("Grand Total: %.2f / %.2f  (%.2f%%)  Grade %s",
				card.GrandTotalObtained, card.GrandTotalMax, card.OverallPercentage, card.OverallGrade),
		}
		if card.TermLabel != nil {
			doc.TermLabel = *card.TermLabel
		}
		if card.Rank != nil {
			doc.RankLine = fmt.Sprintf("Rank: %d of %d", *card.Rank, card.CohortSize)
		}
		if card.Attendance != nil {
			doc.Attendance = fmt.Sprintf("Attendance: %d/%d days (%.2f%%)",
				card.Attendance.Present, card.Attendance.Total, card.Attendance.Percent)
		}
		for _, subject := range card.Subjects {
			doc.Subjects = append(doc.Subjects, export.SubjectRow{
				Subject:    subject.SubjectName,
				Obtained:   fmt.Sprintf("%.2f", subject.TotalObtained),
				Max:        fmt.Sprintf("%.2f", subject.TotalMax),
				Percentage: fmt.Sprintf("%.2f", subject.Percentage),
				Grade:      subject.Grade,
			})
		}
		docs = append(docs, doc)
	}
	return docs
}

func exportTitle(cards []models.ReportCard) string {
	if len(cards) == 0 {
		return "Report Cards"
	}
	first := cards[0]
	title := fmt.Sprintf("Report Cards %s %s", first.ClassName, first.SectionName)
	if first.TermLabel != nil && *first.TermLabel != "" {
		title = fmt.Sprintf("%s (%s)", title, *first.TermLabel)
	}
	return title
}
