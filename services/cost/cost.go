// Package cost computes license cost figures in KRW.
package cost

import (
	"github.com/shopspring/decimal"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
)

var (
	vatRate       = decimal.NewFromFloat(0.1)
	monthsPerYear = decimal.NewFromInt(12)
)

// Input holds the values a cost computation needs
type Input struct {
	PaymentCycle  models.PaymentCycle `json:"payment_cycle" validate:"required,oneof=MONTHLY YEARLY"`
	Quantity      int                 `json:"quantity" validate:"gte=1"`
	UnitPrice     decimal.Decimal     `json:"unit_price"`
	Currency      models.Currency     `json:"currency" validate:"required,oneof=KRW USD EUR JPY GBP CNY"`
	ExchangeRate  decimal.Decimal     `json:"exchange_rate"`
	IsVatIncluded bool                `json:"is_vat_included"`
}

// Result holds the computed amounts. Amounts other than Subtotal are whole units.
type Result struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	VatAmount          int64           `json:"vat_amount"`
	TotalAmountForeign int64           `json:"total_amount_foreign"`
	TotalAmountKRW     int64           `json:"total_amount_krw"`
	AnnualKRW          int64           `json:"annual_krw"`
	MonthlyKRW         int64           `json:"monthly_krw"`
}

// Validate checks the parts of in that struct tags cannot express
func Validate(in Input) error {
	if in.PaymentCycle != models.PaymentCycleMonthly && in.PaymentCycle != models.PaymentCycleYearly {
		return services.Validation("payment cycle must be MONTHLY or YEARLY")
	}
	if !models.ValidCurrency(in.Currency) {
		return services.Validation("unsupported currency %q", in.Currency)
	}
	if in.Quantity < 1 {
		return services.Validation("quantity must be at least 1")
	}
	if in.UnitPrice.IsNegative() {
		return services.Validation("unit price must not be negative")
	}
	if in.ExchangeRate.IsNegative() {
		return services.Validation("exchange rate must not be negative")
	}
	return nil
}

// Compute derives the cost figures of in.
// A non-positive exchange rate is treated as 1.
func Compute(in Input) Result {
	subtotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))

	vat := decimal.Zero
	if !in.IsVatIncluded {
		vat = subtotal.Mul(vatRate).Floor()
	}

	totalForeign := subtotal.Add(vat).Floor()

	rate := in.ExchangeRate
	if !rate.IsPositive() {
		rate = decimal.NewFromInt(1)
	}
	totalKRW := totalForeign.Mul(rate).Floor()

	annual := totalKRW
	if in.PaymentCycle != models.PaymentCycleYearly {
		annual = totalKRW.Mul(monthsPerYear)
	}
	monthly := totalKRW
	if in.PaymentCycle != models.PaymentCycleMonthly {
		monthly = totalKRW.Div(monthsPerYear).Floor()
	}

	return Result{
		Subtotal:           subtotal,
		VatAmount:          vat.IntPart(),
		TotalAmountForeign: totalForeign.IntPart(),
		TotalAmountKRW:     totalKRW.IntPart(),
		AnnualKRW:          annual.IntPart(),
		MonthlyKRW:         monthly.IntPart(),
	}
}

// InputFromLicense builds an Input from the cost fields stored on a license.
// ok is false when the license has no unit price or payment cycle.
func InputFromLicense(l *models.License) (Input, bool) {
	if !l.UnitPrice.Valid || l.PaymentCycle == nil {
		return Input{}, false
	}
	in := Input{
		PaymentCycle:  *l.PaymentCycle,
		Quantity:      l.TotalQuantity,
		UnitPrice:     l.UnitPrice.Decimal,
		Currency:      l.Currency,
		IsVatIncluded: l.IsVatIncluded,
	}
	if l.ExchangeRate.Valid {
		in.ExchangeRate = l.ExchangeRate.Decimal
	}
	return in, true
}

// Apply recomputes the stored totals of a license from its cost fields.
// Licenses without cost data get their totals cleared.
func Apply(l *models.License) {
	in, ok := InputFromLicense(l)
	if !ok {
		l.TotalAmountForeign = nil
		l.TotalAmountKRW = nil
		return
	}
	result := Compute(in)
	l.TotalAmountForeign = &result.TotalAmountForeign
	l.TotalAmountKRW = &result.TotalAmountKRW
}

// AnnualKRW returns the yearly KRW cost of a license from its stored total
func AnnualKRW(l *models.License) (int64, bool) {
	if l.TotalAmountKRW == nil || l.PaymentCycle == nil {
		return 0, false
	}
	if *l.PaymentCycle == models.PaymentCycleMonthly {
		return *l.TotalAmountKRW * 12, true
	}
	return *l.TotalAmountKRW, true
}

// MonthlyKRW returns the monthly KRW cost of a license from its stored total
func MonthlyKRW(l *models.License) (int64, bool) {
	if l.TotalAmountKRW == nil || l.PaymentCycle == nil {
		return 0, false
	}
	if *l.PaymentCycle == models.PaymentCycleMonthly {
		return *l.TotalAmountKRW, true
	}
	return *l.TotalAmountKRW / 12, true
}
