package models

import "time"

// CategoryType groups categories for builder subtotals.
type CategoryType string

const (
	CategoryTuition    CategoryType = "tuition"
	CategoryAdditional CategoryType = "additional"
)

// FeeCategory is long-lived reference data such as tuition or books.
type FeeCategory struct {
	ID           string       `db:"id" json:"id"`
	SchoolID     string       `db:"school_id" json:"school_id"`
	Name         string       `db:"name" json:"name"`
	Description  *string      `db:"description" json:"description,omitempty"`
	IsMandatory  bool         `db:"is_mandatory" json:"is_mandatory"`
	IsRecurring  bool         `db:"is_recurring" json:"is_recurring"`
	CategoryType CategoryType `db:"category_type" json:"category_type"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}
