// Package feewizard accumulates a fee structure draft step by step and
// turns it into a structure submission.
package feewizard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
)

// Steps reported by IncompleteDraftError.
const (
	StepAcademicContext = "academic_context"
	StepItems           = "items"
	StepAmounts         = "amounts"
	StepPaymentSchedule = "payment_schedule"
)

// ValidationError rejects a single builder input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IncompleteDraftError lists the steps still missing before submission.
type IncompleteDraftError struct {
	Missing []string
}

func (e *IncompleteDraftError) Error() string {
	return "draft incomplete: missing " + strings.Join(e.Missing, ", ")
}

// AcademicContext is the first builder step.
type AcademicContext struct {
	AcademicYearID string
	YearName       string
	AppliesTo      models.AppliesTo
	GradeLevel     string
	ProgramType    string
	Currency       string
}

// Scope is the human readable audience of the structure.
func (c AcademicContext) Scope() string {
	if c.AppliesTo == models.AppliesToGrade && c.GradeLevel != "" {
		return c.GradeLevel
	}
	return models.AllGrades
}

// Item is one category line of the draft.
type Item struct {
	CategoryID   string
	Amount       decimal.Decimal
	IsMandatory  bool
	IsRecurring  bool
	PaymentModes []models.PaymentMode
}

// Schedule is the chosen default payment plan.
type Schedule struct {
	Name               string
	Type               models.ScheduleType
	DiscountPercentage decimal.Decimal
}

// Draft is an immutable view of the builder state.
type Draft struct {
	Context          *AcademicContext
	Name             string
	NameIsUserEdited bool
	Items            []Item
	Schedule         *Schedule
}

// Builder is not safe for concurrent use.
type Builder struct {
	categories map[string]models.FeeCategory

	ctx              *AcademicContext
	name             string
	nameIsUserEdited bool
	items            []Item
	schedule         *Schedule
	defaultCurrency  string
}

// New returns a builder that accepts items only for categories.
func New(categories []models.FeeCategory, defaultCurrency string) *Builder {
	index := make(map[string]models.FeeCategory, len(categories))
	for _, c := range categories {
		index[c.ID] = c
	}
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &Builder{categories: index, defaultCurrency: strings.ToUpper(defaultCurrency)}
}

// SetAcademicContext records the year and scope. The structure name is
// regenerated unless the user has edited it.
func (b *Builder) SetAcademicContext(ctx AcademicContext) error {
	if strings.TrimSpace(ctx.AcademicYearID) == "" {
		return &ValidationError{Field: "academic_year_id", Message: "is required"}
	}
	switch ctx.AppliesTo {
	case models.AppliesToSchool:
		ctx.GradeLevel = models.AllGrades
	case models.AppliesToGrade:
		ctx.GradeLevel = strings.TrimSpace(ctx.GradeLevel)
		if ctx.GradeLevel == "" || ctx.GradeLevel == models.AllGrades {
			return &ValidationError{Field: "grade_level", Message: "is required when applies_to is grade"}
		}
	default:
		return &ValidationError{Field: "applies_to", Message: "must be school or grade"}
	}
	if ctx.Currency == "" {
		ctx.Currency = b.defaultCurrency
	}
	ctx.Currency = strings.ToUpper(ctx.Currency)
	if ctx.YearName == "" {
		ctx.YearName = ctx.AcademicYearID
	}

	b.ctx = &ctx
	if !b.nameIsUserEdited {
		b.name = DefaultName(ctx)
	}
	return nil
}

// DefaultName is the auto derived "<year> <scope> Fees" label.
func DefaultName(ctx AcademicContext) string {
	return fmt.Sprintf("%s %s Fees", ctx.YearName, ctx.Scope())
}

// SetName stores a user chosen name. A blank name returns to the derived one.
func (b *Builder) SetName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		b.nameIsUserEdited = false
		b.name = ""
		if b.ctx != nil {
			b.name = DefaultName(*b.ctx)
		}
		return
	}
	b.name = name
	b.nameIsUserEdited = true
}

// AddOrUpdateItem inserts the item or replaces the one with the same category.
func (b *Builder) AddOrUpdateItem(item Item) error {
	category, ok := b.categories[item.CategoryID]
	if !ok {
		return &ValidationError{Field: "category_id", Message: fmt.Sprintf("unknown category %q", item.CategoryID)}
	}
	if item.Amount.IsNegative() {
		return &ValidationError{Field: "amount", Message: fmt.Sprintf("amount for %s must not be negative", category.Name)}
	}
	if len(item.PaymentModes) == 0 {
		return &ValidationError{Field: "payment_modes", Message: fmt.Sprintf("at least one payment mode is required for %s", category.Name)}
	}
	modes := make([]models.PaymentMode, 0, len(item.PaymentModes))
	seen := make(map[models.PaymentMode]struct{}, len(item.PaymentModes))
	for _, mode := range item.PaymentModes {
		if !models.ValidPaymentMode(string(mode)) {
			return &ValidationError{Field: "payment_modes", Message: fmt.Sprintf("unknown payment mode %q", mode)}
		}
		if _, dup := seen[mode]; dup {
			continue
		}
		seen[mode] = struct{}{}
		modes = append(modes, mode)
	}
	item.PaymentModes = modes
	item.Amount = item.Amount.Round(2)

	for i := range b.items {
		if b.items[i].CategoryID == item.CategoryID {
			b.items[i] = item
			return nil
		}
	}
	b.items = append(b.items, item)
	return nil
}

// RemoveItem drops the item for categoryID and reports whether it existed.
func (b *Builder) RemoveItem(categoryID string) bool {
	for i := range b.items {
		if b.items[i].CategoryID == categoryID {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return true
		}
	}
	return false
}

// SetPaymentSchedule selects the default plan created alongside the structure.
func (b *Builder) SetPaymentSchedule(s Schedule) error {
	if s.Type == "" {
		return &ValidationError{Field: "schedule_type", Message: "is required"}
	}
	normalized, ok := models.ParseScheduleType(string(s.Type))
	if !ok {
		return &ValidationError{Field: "schedule_type", Message: fmt.Sprintf("unknown schedule type %q", s.Type)}
	}
	s.Type = normalized
	if s.DiscountPercentage.IsNegative() || s.DiscountPercentage.GreaterThan(decimal.NewFromInt(100)) {
		return &ValidationError{Field: "discount_percentage", Message: "must be between 0 and 100"}
	}
	if !s.DiscountPercentage.IsZero() && s.Type != models.ScheduleAnnual {
		return &ValidationError{Field: "discount_percentage", Message: "only annual schedules carry a discount"}
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = DefaultScheduleName(s.Type)
	}
	b.schedule = &s
	return nil
}

// ComputeTotals sums item amounts grouped by category type.
func (b *Builder) ComputeTotals() dto.StructureTotals {
	totals := dto.StructureTotals{
		TuitionTotal:    decimal.Zero,
		AdditionalTotal: decimal.Zero,
		GrandTotal:      decimal.Zero,
		Categories:      make([]dto.CategorySubtotal, 0, len(b.items)),
	}
	for _, item := range b.items {
		category := b.categories[item.CategoryID]
		if category.CategoryType == models.CategoryTuition {
			totals.TuitionTotal = totals.TuitionTotal.Add(item.Amount)
		} else {
			totals.AdditionalTotal = totals.AdditionalTotal.Add(item.Amount)
		}
		totals.GrandTotal = totals.GrandTotal.Add(item.Amount)
		totals.Categories = append(totals.Categories, dto.CategorySubtotal{
			CategoryID:   category.ID,
			CategoryName: category.Name,
			CategoryType: category.CategoryType,
			Amount:       item.Amount,
		})
	}
	sort.SliceStable(totals.Categories, func(i, j int) bool {
		return totals.Categories[i].CategoryType == models.CategoryTuition &&
			totals.Categories[j].CategoryType != models.CategoryTuition
	})
	return totals
}

// ToSubmission serialises the draft for POST /fees/structures.
func (b *Builder) ToSubmission() (*dto.CreateFeeStructureRequest, error) {
	if missing := b.Missing(); len(missing) > 0 {
		return nil, &IncompleteDraftError{Missing: missing}
	}
	totals := b.ComputeTotals()

	req := &dto.CreateFeeStructureRequest{
		Name:           b.name,
		AcademicYearID: b.ctx.AcademicYearID,
		GradeLevel:     b.ctx.GradeLevel,
		AppliesTo:      b.ctx.AppliesTo,
		Currency:       b.ctx.Currency,
		TotalAmount:    totals.GrandTotal,
		Items:          make([]dto.FeeItemRequest, len(b.items)),
		PaymentSchedule: &dto.ScheduleRequest{
			Name:               b.schedule.Name,
			ScheduleType:       string(b.schedule.Type),
			DiscountPercentage: b.schedule.DiscountPercentage,
		},
	}
	if b.ctx.ProgramType != "" {
		program := b.ctx.ProgramType
		req.ProgramType = &program
	}
	for i, item := range b.items {
		modes := make([]string, len(item.PaymentModes))
		for j, m := range item.PaymentModes {
			modes[j] = string(m)
		}
		req.Items[i] = dto.FeeItemRequest{
			CategoryID:   item.CategoryID,
			Amount:       item.Amount,
			IsMandatory:  item.IsMandatory,
			IsRecurring:  item.IsRecurring,
			PaymentModes: modes,
		}
	}
	return req, nil
}

// Missing lists the incomplete steps in wizard order.
func (b *Builder) Missing() []string {
	var missing []string
	if b.ctx == nil {
		missing = append(missing, StepAcademicContext)
	}
	if len(b.items) == 0 {
		missing = append(missing, StepItems)
	} else if !b.ComputeTotals().GrandTotal.IsPositive() {
		missing = append(missing, StepAmounts)
	}
	if b.schedule == nil {
		missing = append(missing, StepPaymentSchedule)
	}
	return missing
}

// Snapshot returns a copy of the draft that later builder calls cannot change.
func (b *Builder) Snapshot() Draft {
	d := Draft{Name: b.name, NameIsUserEdited: b.nameIsUserEdited}
	if b.ctx != nil {
		ctx := *b.ctx
		d.Context = &ctx
	}
	if b.schedule != nil {
		s := *b.schedule
		d.Schedule = &s
	}
	d.Items = make([]Item, len(b.items))
	for i, item := range b.items {
		item.PaymentModes = append([]models.PaymentMode(nil), item.PaymentModes...)
		d.Items[i] = item
	}
	return d
}

// DefaultScheduleName names a plan after its type.
func DefaultScheduleName(t models.ScheduleType) string {
	switch t {
	case models.ScheduleAnnual:
		return "Annual"
	case models.SchedulePerTerm:
		return "Per Term"
	case models.ScheduleMonthly:
		return "Monthly"
	default:
		return "Custom"
	}
}
