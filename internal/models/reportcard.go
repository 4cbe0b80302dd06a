package models

import "time"

// AssessmentLine is one assessment's contribution to a subject result.
// Obtained stays nil for ungraded marks; Max always counts.
type AssessmentLine struct {
	AssessmentID string   `json:"assessment_id"`
	Title        string   `json:"title"`
	Obtained     *float64 `json:"obtained,omitempty"`
	Max          float64  `json:"max"`
}

// SubjectResult aggregates a student's marks within one subject. Constructed
// fresh per generation call and never persisted.
type SubjectResult struct {
	SubjectName   string           `json:"subject_name"`
	Lines         []AssessmentLine `json:"assessments"`
	TotalObtained float64          `json:"total_obtained"`
	TotalMax      float64          `json:"total_max"`
	Percentage    float64          `json:"percentage"`
	Grade         string           `json:"grade"`
}

// AttendanceSummary condenses attendance counts for display on the card.
// Present includes late arrivals for percentage purposes.
type AttendanceSummary struct {
	Present int     `json:"present"`
	Absent  int     `json:"absent"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// ReportCard is the per-student output of a generation pass. Derived,
// ephemeral, owned by the caller; rank is back-filled by the cohort ranking
// step and stays nil until then.
type ReportCard struct {
	StudentID          string             `json:"student_id"`
	StudentName        string             `json:"student_name"`
	ClassName          string             `json:"class_name"`
	SectionName        string             `json:"section_name"`
	Subjects           []SubjectResult    `json:"subjects"`
	GrandTotalObtained float64            `json:"grand_total_obtained"`
	GrandTotalMax      float64            `json:"grand_total_max"`
	OverallPercentage  float64            `json:"overall_percentage"`
	OverallGrade       string             `json:"overall_grade"`
	Rank               *int               `json:"rank,omitempty"`
	CohortSize         int                `json:"cohort_size"`
	Attendance         *AttendanceSummary `json:"attendance,omitempty"`
	TermLabel          *string            `json:"term_label,omitempty"`
	GeneratedAt        time.Time          `json:"generated_at"`
}
