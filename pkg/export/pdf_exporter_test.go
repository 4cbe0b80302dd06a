package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFRenderCards(t *testing.T) {
	exporter := NewPDFExporter()

	data, err := exporter.RenderCards("Report Cards - Term 1", []ReportCardDoc{
		{
			StudentName: "Alice",
			ClassName:   "Grade 8",
			SectionName: "B",
			TermLabel:   "T1",
			Subjects: []SubjectRow{
				{Subject: "Mathematics", Obtained: "110.00", Max: "150.00", Percentage: "73.33", Grade: "B"},
				{Subject: "English", Obtained: "20.00", Max: "50.00", Percentage: "40.00", Grade: "F"},
			},
			TotalLine:  "Total: 130.00 / 200.00 (65.00%) Grade C",
			RankLine:   "Rank: 1 of 3",
			Attendance: "Attendance: 20/22 (90.91%)",
		},
		{
			StudentName: "Bob",
			ClassName:   "Grade 8",
			SectionName: "B",
			Subjects: []SubjectRow{
				{Subject: "Mathematics", Obtained: "70.00", Max: "150.00", Percentage: "46.67", Grade: "F"},
			},
			TotalLine: "Total: 70.00 / 150.00 (46.67%) Grade F",
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	// A PDF stream always opens with the version marker.
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestPDFRenderCardsRequiresInput(t *testing.T) {
	exporter := NewPDFExporter()

	_, err := exporter.RenderCards("Report Cards", nil)
	require.Error(t, err)
}
