package models

import "time"

// Student is a learner enrolled at a school.
type Student struct {
	ID              string    `db:"id" json:"id"`
	SchoolID        string    `db:"school_id" json:"school_id"`
	AdmissionNumber *string   `db:"admission_number" json:"admission_number,omitempty"`
	FullName        string    `db:"full_name" json:"full_name"`
	GradeLevel      string    `db:"grade_level" json:"grade_level"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter selects students. It never carries fee template criteria.
type StudentFilter struct {
	GradeLevel string
	Search     string
	ActiveOnly bool
	Page       int
	PageSize   int
}
