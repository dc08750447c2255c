// Package feeplan splits a fee total into default installment plans.
package feeplan

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/school-fees-api/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)

	ErrNegativeTotal    = errors.New("total amount must not be negative")
	ErrInvalidDiscount  = errors.New("discount percentage must be between 0 and 100")
	ErrDiscountNotAllow = errors.New("discount is only allowed on annual schedules")
	ErrUnknownType      = errors.New("unknown schedule type")
)

// Installment is one computed share of a plan.
type Installment struct {
	Number     int             `json:"installment_number"`
	Label      string          `json:"label"`
	Percentage decimal.Decimal `json:"percentage"`
	Amount     decimal.Decimal `json:"amount"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

// Plan is the full breakdown of a schedule.
type Plan struct {
	Type               models.ScheduleType `json:"schedule_type"`
	Total              decimal.Decimal     `json:"total_amount"`
	DiscountPercentage decimal.Decimal     `json:"discount_percentage"`
	Payable            decimal.Decimal     `json:"payable_amount"`
	Installments       []Installment       `json:"installments"`
	PercentageTotal    decimal.Decimal     `json:"percentage_total"`
	Balanced           bool                `json:"balanced"`
}

// Dates anchors due dates. Zero values leave due dates unset.
type Dates struct {
	Start      time.Time
	End        time.Time
	TermStarts []time.Time
}

// Generate builds the default plan for scheduleType. Custom plans are empty.
func Generate(scheduleType models.ScheduleType, total, discount decimal.Decimal, dates Dates) (Plan, error) {
	if total.IsNegative() {
		return Plan{}, ErrNegativeTotal
	}
	if discount.IsNegative() || discount.GreaterThan(hundred) {
		return Plan{}, ErrInvalidDiscount
	}
	if !discount.IsZero() && scheduleType != models.ScheduleAnnual {
		return Plan{}, ErrDiscountNotAllow
	}

	var (
		labels []string
		due    []*time.Time
	)
	switch scheduleType {
	case models.ScheduleAnnual:
		labels = []string{"Full payment"}
		due = []*time.Time{dateOrNil(dates.Start)}
	case models.SchedulePerTerm:
		labels = []string{"Term 1", "Term 2", "Term 3"}
		due = termDueDates(dates, 3)
	case models.ScheduleMonthly:
		labels = make([]string, 12)
		due = make([]*time.Time, 12)
		for i := range labels {
			labels[i] = fmt.Sprintf("Month %d", i+1)
			if !dates.Start.IsZero() {
				d := dates.Start.AddDate(0, i, 0)
				due[i] = &d
			}
		}
	case models.ScheduleCustom:
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownType, scheduleType)
	}

	payable := ApplyDiscount(total, discount)
	percentages := EvenPercentages(len(labels))
	amounts := SplitAmount(payable, percentages)

	plan := Plan{
		Type:               scheduleType,
		Total:              total.Round(2),
		DiscountPercentage: discount,
		Payable:            payable,
		Installments:       make([]Installment, len(labels)),
	}
	for i, label := range labels {
		plan.Installments[i] = Installment{
			Number:     i + 1,
			Label:      label,
			Percentage: percentages[i],
			Amount:     amounts[i],
			DueDate:    due[i],
		}
	}
	plan.PercentageTotal, plan.Balanced = Check(plan.Installments)
	return plan, nil
}

// ApplyDiscount returns total × (1 − discount/100) rounded to cents.
func ApplyDiscount(total, discount decimal.Decimal) decimal.Decimal {
	if discount.IsZero() {
		return total.Round(2)
	}
	factor := hundred.Sub(discount).Div(hundred)
	return total.Mul(factor).Round(2)
}

// EvenPercentages splits 100 into n two-decimal shares, the last absorbing the remainder.
func EvenPercentages(n int) []decimal.Decimal {
	if n <= 0 {
		return nil
	}
	base := hundred.DivRound(decimal.NewFromInt(int64(n)), 4).Truncate(2)
	out := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		out[i] = base
	}
	out[n-1] = hundred.Sub(base.Mul(decimal.NewFromInt(int64(n - 1))))
	return out
}

// SplitAmount allocates total by percentages rounded to cents. The last share
// takes whatever is left so the parts always add back up to total.
func SplitAmount(total decimal.Decimal, percentages []decimal.Decimal) []decimal.Decimal {
	if len(percentages) == 0 {
		return nil
	}
	total = total.Round(2)
	out := make([]decimal.Decimal, len(percentages))
	allocated := decimal.Zero
	for i := 0; i < len(percentages)-1; i++ {
		out[i] = total.Mul(percentages[i]).Div(hundred).Round(2)
		allocated = allocated.Add(out[i])
	}
	out[len(out)-1] = total.Sub(allocated)
	return out
}

// Check sums installment percentages and reports whether they reach exactly 100.
func Check(installments []Installment) (decimal.Decimal, bool) {
	sum := decimal.Zero
	for _, inst := range installments {
		sum = sum.Add(inst.Percentage)
	}
	return sum, sum.Equal(hundred)
}

// Custom completes caller supplied installments against payable. Missing
// amounts are derived from percentages and vice versa.
func Custom(payable decimal.Decimal, installments []Installment) []Installment {
	out := make([]Installment, len(installments))
	for i, inst := range installments {
		inst.Number = i + 1
		switch {
		case inst.Amount.IsZero() && !inst.Percentage.IsZero():
			inst.Amount = payable.Mul(inst.Percentage).Div(hundred).Round(2)
		case inst.Percentage.IsZero() && !inst.Amount.IsZero() && payable.IsPositive():
			inst.Percentage = inst.Amount.Mul(hundred).DivRound(payable, 2)
		}
		out[i] = inst
	}
	return out
}

func termDueDates(dates Dates, n int) []*time.Time {
	due := make([]*time.Time, n)
	if len(dates.TermStarts) >= n {
		for i := 0; i < n; i++ {
			d := dates.TermStarts[i]
			due[i] = &d
		}
		return due
	}
	if dates.Start.IsZero() {
		return due
	}
	if dates.End.IsZero() || !dates.End.After(dates.Start) {
		for i := 0; i < n; i++ {
			d := dates.Start.AddDate(0, 4*i, 0)
			due[i] = &d
		}
		return due
	}
	step := dates.End.Sub(dates.Start) / time.Duration(n)
	for i := 0; i < n; i++ {
		d := dates.Start.Add(step * time.Duration(i)).Truncate(24 * time.Hour)
		due[i] = &d
	}
	return due
}

func dateOrNil(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
