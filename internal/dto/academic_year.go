package dto

import "github.com/noah-isme/school-fees-api/internal/models"

// CreateAcademicYearRequest is the POST /fees/academic-years payload. Dates use YYYY-MM-DD.
type CreateAcademicYearRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	TermStructure string `json:"term_structure" validate:"max=100"`
	IsActive      bool   `json:"is_active"`
}

// UpdateAcademicYearRequest replaces the mutable fields of a year.
type UpdateAcademicYearRequest struct {
	Name          string `json:"name" validate:"required,max=100"`
	StartDate     string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `json:"end_date" validate:"required,datetime=2006-01-02"`
	TermStructure string `json:"term_structure" validate:"max=100"`
	IsActive      *bool  `json:"is_active"`
}

// AcademicYearList is the data of the academic year listing.
type AcademicYearList struct {
	AcademicYears []models.AcademicYear    `json:"academicYears"`
	Pagination    *models.Pagination       `json:"pagination"`
	Stats         models.AcademicYearStats `json:"stats"`
}

// CreateTermRequest adds a term to an academic year.
type CreateTermRequest struct {
	Name       string `json:"name" validate:"required,max=100"`
	TermNumber int    `json:"term_number" validate:"required,gte=1,lte=12"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// DeletionSummary counts the rows removed by a cascading delete.
type DeletionSummary struct {
	Payments     int64 `json:"payments"`
	Adjustments  int64 `json:"adjustments"`
	Assignments  int64 `json:"assignments"`
	Installments int64 `json:"installments"`
	Schedules    int64 `json:"schedules"`
	Items        int64 `json:"items"`
	Structures   int64 `json:"structures"`
	AuditRows    int64 `json:"audit_rows"`
	Terms        int64 `json:"terms"`
	Years        int64 `json:"years"`
}
