package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garnizeh/rentops/internal/pricing"
	"github.com/garnizeh/rentops/pkg/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func some(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func item(qty int, price, disc string) models.LineItem {
	return models.LineItem{Quantity: qty, UnitPrice: dec(price), Discount: dec(disc)}
}

func TestCalculate_WorkedExample(t *testing.T) {
	items := []models.LineItem{item(2, "100", "0"), item(1, "50", "10")}

	q := pricing.Calculate(items, pricing.Discount{Amount: some("20")})

	require.Len(t, q.Subtotals, 2)
	assert.True(t, q.Subtotals[0].Equal(dec("200")))
	assert.True(t, q.Subtotals[1].Equal(dec("40")))
	assert.True(t, q.Gross.Equal(dec("240")), "gross %s", q.Gross)
	assert.True(t, q.Total.Equal(dec("220")), "total %s", q.Total)
	assert.False(t, q.Clamped)
	assert.Empty(t, q.Warnings)
}

func TestCalculate_DiscountPrecedence(t *testing.T) {
	items := []models.LineItem{item(4, "25.00", "0")}

	cases := []struct {
		name     string
		discount pricing.Discount
		want     string
	}{
		{"none", pricing.Discount{}, "100"},
		{"percent only", pricing.Discount{Percent: some("10")}, "90"},
		{"amount only", pricing.Discount{Amount: some("15")}, "85"},
		{"amount overrides percent", pricing.Discount{Percent: some("50"), Amount: some("15")}, "85"},
		{"fractional percent rounds to cents", pricing.Discount{Percent: some("3.333")}, "96.67"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := pricing.Calculate(items, tc.discount)
			assert.True(t, q.Total.Equal(dec(tc.want)), "want %s got %s", tc.want, q.Total)
		})
	}
}

func TestCalculate_ClampsNegativeTotal(t *testing.T) {
	q := pricing.Calculate([]models.LineItem{item(1, "10", "0")}, pricing.Discount{Amount: some("25")})

	assert.True(t, q.Total.IsZero())
	assert.True(t, q.Clamped)
	assert.Equal(t, []string{pricing.WarningTotalClamped}, q.Warnings)
}

func TestCalculate_NoItems(t *testing.T) {
	q := pricing.Calculate(nil, pricing.Discount{Percent: some("10")})

	assert.True(t, q.Gross.IsZero())
	assert.True(t, q.Total.IsZero())
	assert.False(t, q.Clamped)
	assert.Empty(t, q.Subtotals)
}

func TestCalculate_LineDiscountBeyondSubtotal(t *testing.T) {
	// a single over-discounted line lowers the gross but only the total is clamped
	items := []models.LineItem{item(1, "10", "30"), item(1, "50", "0")}

	q := pricing.Calculate(items, pricing.Discount{})

	assert.True(t, q.Subtotals[0].Equal(dec("-20")))
	assert.True(t, q.Total.Equal(dec("30")))
	assert.False(t, q.Clamped)
}

func TestCalculate_Deterministic(t *testing.T) {
	items := []models.LineItem{item(3, "19.99", "1.50"), item(2, "7.25", "0")}
	d := pricing.Discount{Percent: some("12.5")}

	first := pricing.Calculate(items, d)
	for range 5 {
		again := pricing.Calculate(items, d)
		require.True(t, first.Total.Equal(again.Total))
	}
	// 59.97-1.50 + 14.50 = 72.97; 12.5% = 9.12125 -> 9.12; 72.97-9.12 = 63.85
	assert.True(t, first.Total.Equal(dec("63.85")), "got %s", first.Total)
}
