// Package pricing derives a Job's monetary total from its line items and
// discount inputs. Everything here is pure and deterministic.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/garnizeh/rentops/pkg/models"
)

// WarningTotalClamped is raised when discounts push the total below zero.
const WarningTotalClamped = "total_clamped"

var hundred = decimal.NewFromInt(100)

// Discount holds the job-level discount inputs. When both are set, Amount
// wins over Percent.
type Discount struct {
	Percent decimal.NullDecimal
	Amount  decimal.NullDecimal
}

// Quote is the full breakdown of one pricing run.
type Quote struct {
	Subtotals []decimal.Decimal
	Gross     decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	Clamped   bool
	Warnings  []string
}

// Subtotal is quantity × unit price − line discount.
func Subtotal(it models.LineItem) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Sub(it.Discount)
}

// Calculate prices a set of line items. A negative total is clamped to zero
// and reported through Warnings; it is not an error.
func Calculate(items []models.LineItem, d Discount) Quote {
	q := Quote{Subtotals: make([]decimal.Decimal, len(items))}

	for i, it := range items {
		q.Subtotals[i] = Subtotal(it)
		q.Gross = q.Gross.Add(q.Subtotals[i])
	}

	switch {
	case d.Amount.Valid:
		q.Discount = d.Amount.Decimal
	case d.Percent.Valid:
		q.Discount = q.Gross.Mul(d.Percent.Decimal).Div(hundred).Round(2)
	}

	q.Total = q.Gross.Sub(q.Discount)
	if q.Total.IsNegative() {
		q.Total = decimal.Zero
		q.Clamped = true
		q.Warnings = append(q.Warnings, WarningTotalClamped)
	}
	return q
}

// DiscountOf reads the discount inputs stored on a job.
func DiscountOf(j *models.Job) Discount {
	return Discount{Percent: j.DiscountPercent, Amount: j.DiscountAmount}
}
