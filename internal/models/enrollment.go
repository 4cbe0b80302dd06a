package models

import "time"

// Enrollment captures a student's membership in a section. An enrollment is
// active while EndDate is null; upstream data guarantees at most one active
// enrollment per student per school.
type Enrollment struct {
	ID        string     `db:"id" json:"id"`
	SchoolID  string     `db:"school_id" json:"school_id"`
	StudentID string     `db:"student_id" json:"student_id"`
	SectionID string     `db:"section_id" json:"section_id"`
	StartDate time.Time  `db:"start_date" json:"start_date"`
	EndDate   *time.Time `db:"end_date" json:"end_date,omitempty"`
}

// Active reports whether the enrollment is still open.
func (e Enrollment) Active() bool {
	return e.EndDate == nil
}

// EnrollmentDetail enriches Enrollment with student and section info.
type EnrollmentDetail struct {
	Enrollment
	StudentName string `db:"student_name" json:"student_name"`
	ClassName   string `db:"class_name" json:"class_name"`
	SectionName string `db:"section_name" json:"section_name"`
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	SectionID string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
