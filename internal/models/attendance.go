package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusExcused AttendanceStatus = "EXCUSED"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusExcused:
		return true
	default:
		return false
	}
}

// CountsPresent reports whether the status counts toward the present
// percentage. Late arrivals still count as present.
func (s AttendanceStatus) CountsPresent() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// AttendanceEntry is a single attendance row for a student.
type AttendanceEntry struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	SectionID string           `db:"section_id" json:"section_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Notes     *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceTally holds raw status counts for one student.
type AttendanceTally struct {
	StudentID string `db:"student_id" json:"student_id"`
	Present   int    `db:"present" json:"present"`
	Absent    int    `db:"absent" json:"absent"`
	Late      int    `db:"late" json:"late"`
	Excused   int    `db:"excused" json:"excused"`
}

// Total returns the number of recorded entries.
func (t AttendanceTally) Total() int {
	return t.Present + t.Absent + t.Late + t.Excused
}

// AttendanceFilter scopes listing and tally queries.
type AttendanceFilter struct {
	StudentID string
	SectionID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Status    *AttendanceStatus
	Page      int
	PageSize  int
}
