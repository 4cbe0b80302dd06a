package models

import "time"

// Mark is a student's raw score on one assessment. A nil Score means the
// assessment has not been graded yet: it contributes 0 to the obtained total
// while the assessment's max marks still count toward the denominator.
type Mark struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	StudentID    string    `db:"student_id" json:"student_id"`
	AssessmentID string    `db:"assessment_id" json:"assessment_id"`
	Score        *float64  `db:"score" json:"score,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// MarkFilter scopes listing queries.
type MarkFilter struct {
	StudentID    string
	AssessmentID string
	SectionID    string
	Page         int
	PageSize     int
}
