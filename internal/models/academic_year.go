package models

import "time"

// AcademicYear owns every fee structure, term and audit row created for it.
type AcademicYear struct {
	ID            string    `db:"id" json:"id"`
	SchoolID      string    `db:"school_id" json:"school_id"`
	Name          string    `db:"name" json:"name"`
	StartDate     time.Time `db:"start_date" json:"start_date"`
	EndDate       time.Time `db:"end_date" json:"end_date"`
	TermStructure string    `db:"term_structure" json:"term_structure"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedBy     *string   `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AcademicYearStats summarises a school's years for list views.
type AcademicYearStats struct {
	TotalYears      int     `db:"total_years" json:"total_years"`
	ActiveYearID    *string `db:"active_year_id" json:"active_year_id,omitempty"`
	TotalStructures int     `db:"total_structures" json:"total_structures"`
}
