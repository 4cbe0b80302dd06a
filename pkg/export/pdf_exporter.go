package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// ReportCardDoc is the renderer-facing shape of one student's card. The
// caller flattens its domain model into this before rendering so the
// exporter stays independent of the API's internal types.
type ReportCardDoc struct {
	StudentName string
	ClassName   string
	SectionName string
	TermLabel   string
	Subjects    []SubjectRow
	TotalLine   string
	RankLine    string
	Attendance  string
}

// SubjectRow is one subject's totals within a card.
type SubjectRow struct {
	Subject    string
	Obtained   string
	Max        string
	Percentage string
	Grade      string
}

// PDFExporter renders report cards into a printable PDF, one page per
// student.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

var subjectTableWidths = []float64{70, 30, 30, 30, 30}

// RenderCards creates a PDF document with one page per report card.
func (e *PDFExporter) RenderCards(title string, cards []ReportCardDoc) ([]byte, error) {
	if len(cards) == 0 {
		return nil, fmt.Errorf("pdf requires at least one report card")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)

	for _, card := range cards {
		pdf.AddPage()

		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Student: %s", card.StudentName), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("Class: %s  Section: %s", card.ClassName, card.SectionName), "", 1, "L", false, 0, "")
		if card.TermLabel != "" {
			pdf.CellFormat(0, 6, fmt.Sprintf("Term: %s", card.TermLabel), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)

		pdf.SetFont("Arial", "B", 10)
		headers := []string{"Subject", "Obtained", "Max", "Percentage", "Grade"}
		for i, header := range headers {
			pdf.CellFormat(subjectTableWidths[i], 8, header, "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 9)
		for _, row := range card.Subjects {
			cells := []string{row.Subject, row.Obtained, row.Max, row.Percentage, row.Grade}
			for i, cell := range cells {
				align := "R"
				if i == 0 {
					align = "L"
				}
				pdf.CellFormat(subjectTableWidths[i], 7, cell, "1", 0, align, false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.Ln(4)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 7, card.TotalLine, "", 1, "L", false, 0, "")
		if card.RankLine != "" {
			pdf.CellFormat(0, 7, card.RankLine, "", 1, "L", false, 0, "")
		}
		if card.Attendance != "" {
			pdf.SetFont("Arial", "", 10)
			pdf.CellFormat(0, 7, card.Attendance, "", 1, "L", false, 0, "")
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
