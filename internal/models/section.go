package models

import "time"

// Section is a class subdivision grouping students, e.g. "Grade 5 - B".
// ClassName carries the parent class label ("Grade 5"), Name the subdivision.
type Section struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	ClassName string    `db:"class_name" json:"class_name"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
