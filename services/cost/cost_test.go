package cost

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name     string
		input    Input
		expected Result
	}{
		{
			name: "yearly KRW with VAT added",
			input: Input{
				PaymentCycle: models.PaymentCycleYearly,
				Quantity:     10,
				UnitPrice:    decimal.NewFromInt(100000),
				Currency:     models.CurrencyKRW,
			},
			expected: Result{
				Subtotal:           decimal.NewFromInt(1000000),
				VatAmount:          100000,
				TotalAmountForeign: 1100000,
				TotalAmountKRW:     1100000,
				AnnualKRW:          1100000,
				MonthlyKRW:         91666,
			},
		},
		{
			name: "monthly USD with VAT included and exchange rate",
			input: Input{
				PaymentCycle:  models.PaymentCycleMonthly,
				Quantity:      3,
				UnitPrice:     decimal.RequireFromString("12.99"),
				Currency:      models.CurrencyUSD,
				ExchangeRate:  decimal.RequireFromString("1350.5"),
				IsVatIncluded: true,
			},
			expected: Result{
				Subtotal:           decimal.RequireFromString("38.97"),
				VatAmount:          0,
				TotalAmountForeign: 38,
				TotalAmountKRW:     51319,
				AnnualKRW:          615828,
				MonthlyKRW:         51319,
			},
		},
		{
			name: "VAT is floored",
			input: Input{
				PaymentCycle: models.PaymentCycleMonthly,
				Quantity:     1,
				UnitPrice:    decimal.NewFromInt(15),
				Currency:     models.CurrencyKRW,
			},
			expected: Result{
				Subtotal:           decimal.NewFromInt(15),
				VatAmount:          1,
				TotalAmountForeign: 16,
				TotalAmountKRW:     16,
				AnnualKRW:          192,
				MonthlyKRW:         16,
			},
		},
		{
			name: "zero exchange rate counts as 1",
			input: Input{
				PaymentCycle:  models.PaymentCycleYearly,
				Quantity:      2,
				UnitPrice:     decimal.NewFromInt(50),
				Currency:      models.CurrencyEUR,
				IsVatIncluded: true,
			},
			expected: Result{
				Subtotal:           decimal.NewFromInt(100),
				TotalAmountForeign: 100,
				TotalAmountKRW:     100,
				AnnualKRW:          100,
				MonthlyKRW:         8,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Compute(tt.input)

			assert.True(t, tt.expected.Subtotal.Equal(result.Subtotal), "subtotal %s", result.Subtotal)
			assert.Equal(t, tt.expected.VatAmount, result.VatAmount)
			assert.Equal(t, tt.expected.TotalAmountForeign, result.TotalAmountForeign)
			assert.Equal(t, tt.expected.TotalAmountKRW, result.TotalAmountKRW)
			assert.Equal(t, tt.expected.AnnualKRW, result.AnnualKRW)
			assert.Equal(t, tt.expected.MonthlyKRW, result.MonthlyKRW)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := Input{
		PaymentCycle: models.PaymentCycleYearly,
		Quantity:     1,
		UnitPrice:    decimal.NewFromInt(1),
		Currency:     models.CurrencyKRW,
	}
	require.NoError(t, Validate(valid))

	tests := []struct {
		name   string
		mutate func(*Input)
	}{
		{"bad cycle", func(in *Input) { in.PaymentCycle = "WEEKLY" }},
		{"bad currency", func(in *Input) { in.Currency = "BTC" }},
		{"zero quantity", func(in *Input) { in.Quantity = 0 }},
		{"negative price", func(in *Input) { in.UnitPrice = decimal.NewFromInt(-1) }},
		{"negative rate", func(in *Input) { in.ExchangeRate = decimal.NewFromInt(-5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			assert.True(t, services.IsValidationError(Validate(in)))
		})
	}
}

func TestApply(t *testing.T) {
	yearly := models.PaymentCycleYearly
	license := &models.License{
		TotalQuantity: 5,
		PaymentCycle:  &yearly,
		UnitPrice:     decimal.NewNullDecimal(decimal.NewFromInt(20)),
		Currency:      models.CurrencyUSD,
		ExchangeRate:  decimal.NewNullDecimal(decimal.NewFromInt(1300)),
	}

	Apply(license)

	require.NotNil(t, license.TotalAmountKRW)
	assert.Equal(t, int64(110), *license.TotalAmountForeign)
	assert.Equal(t, int64(143000), *license.TotalAmountKRW)

	annual, ok := AnnualKRW(license)
	assert.True(t, ok)
	assert.Equal(t, int64(143000), annual)

	monthly, ok := MonthlyKRW(license)
	assert.True(t, ok)
	assert.Equal(t, int64(11916), monthly)

	license.UnitPrice = decimal.NullDecimal{}
	Apply(license)
	assert.Nil(t, license.TotalAmountKRW)

	_, ok = AnnualKRW(license)
	assert.False(t, ok)
}
