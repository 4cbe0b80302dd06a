package models

import "time"

// Assessment is a gradable event (test, assignment) scoped to a section and
// optionally a subject and term. Only published assessments are eligible for
// report-card inclusion. A nil SubjectID groups the assessment under the
// synthetic "General" bucket.
type Assessment struct {
	ID          string    `db:"id" json:"id"`
	SchoolID    string    `db:"school_id" json:"school_id"`
	SectionID   string    `db:"section_id" json:"section_id"`
	SubjectID   *string   `db:"subject_id" json:"subject_id,omitempty"`
	Title       string    `db:"title" json:"title"`
	MaxMarks    float64   `db:"max_marks" json:"max_marks"`
	TermLabel   *string   `db:"term_label" json:"term_label,omitempty"`
	IsPublished bool      `db:"is_published" json:"is_published"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AssessmentFilter scopes listing queries.
type AssessmentFilter struct {
	SectionID   string
	SubjectID   string
	TermLabel   string
	Published   *bool
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
