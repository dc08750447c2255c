package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/pkg/database"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
)

type feeCategoryRepository interface {
	List(ctx context.Context, schoolID string) ([]models.FeeCategory, error)
	FindByIDs(ctx context.Context, schoolID string, ids []string) ([]models.FeeCategory, error)
	FindByID(ctx context.Context, schoolID, id string) (*models.FeeCategory, error)
	Create(ctx context.Context, category *models.FeeCategory) error
	Update(ctx context.Context, category *models.FeeCategory) error
}

// CategoryService manages the fee category reference data.
type CategoryService struct {
	repo      feeCategoryRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCategoryService constructs a category service.
func NewCategoryService(repo feeCategoryRepository, validate *validator.Validate, logger *zap.Logger) *CategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{repo: repo, validator: validate, logger: logger}
}

// List returns every category of the school.
func (s *CategoryService) List(ctx context.Context, schoolID string) ([]models.FeeCategory, error) {
	categories, err := s.repo.List(ctx, schoolID)
	if err != nil {
		s.logger.Error("list fee categories", zap.String("school_id", schoolID), zap.Error(err))
		return nil, appErrors.Internal(err, "failed to list fee categories")
	}
	if categories == nil {
		categories = []models.FeeCategory{}
	}
	return categories, nil
}

// Create adds a category. Names are unique per school.
func (s *CategoryService) Create(ctx context.Context, actor *models.Profile, req dto.FeeCategoryRequest) (*models.FeeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid fee category payload")
	}
	category := &models.FeeCategory{
		SchoolID:     actor.SchoolID,
		Name:         req.Name,
		Description:  req.Description,
		IsMandatory:  req.IsMandatory,
		IsRecurring:  req.IsRecurring,
		CategoryType: req.CategoryType,
	}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, s.storeError(err, "create fee category")
	}
	return category, nil
}

// Update replaces a category's fields.
func (s *CategoryService) Update(ctx context.Context, actor *models.Profile, id string, req dto.FeeCategoryRequest) (*models.FeeCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid fee category payload")
	}
	category, err := s.repo.FindByID(ctx, actor.SchoolID, id)
	if err != nil {
		return nil, notFoundOr(s.logger, err, "fee category", "load fee category")
	}
	category.Name = req.Name
	category.Description = req.Description
	category.IsMandatory = req.IsMandatory
	category.IsRecurring = req.IsRecurring
	category.CategoryType = req.CategoryType
	if err := s.repo.Update(ctx, category); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "fee category not found")
		}
		return nil, s.storeError(err, "update fee category")
	}
	return category, nil
}

func (s *CategoryService) storeError(err error, action string) error {
	if database.IsUniqueViolation(err) {
		return appErrors.Clone(appErrors.ErrConflict, "fee category name already exists")
	}
	s.logger.Error(action, zap.Error(err))
	return appErrors.Internal(err, "failed to "+action)
}
