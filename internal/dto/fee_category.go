package dto

import "github.com/noah-isme/school-fees-api/internal/models"

// FeeCategoryRequest creates or replaces a fee category.
type FeeCategoryRequest struct {
	Name         string              `json:"name" validate:"required,max=100"`
	Description  *string             `json:"description" validate:"omitempty,max=500"`
	IsMandatory  bool                `json:"is_mandatory"`
	IsRecurring  bool                `json:"is_recurring"`
	CategoryType models.CategoryType `json:"category_type" validate:"required,oneof=tuition additional"`
}
