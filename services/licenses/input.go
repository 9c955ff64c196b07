package licenses

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/upb/license-inventory/models"
	"github.com/upb/license-inventory/services"
	"github.com/upb/license-inventory/services/cost"
)

const dateLayout = "2006-01-02"

// Notice period choices
const (
	NoticePeriod30     = "30"
	NoticePeriod90     = "90"
	NoticePeriodCustom = "custom"
)

// Input is the editable part of a license, as submitted by a client.
// Dates use the YYYY-MM-DD format.
type Input struct {
	Name               string               `json:"name" validate:"required,max=255"`
	Key                *string              `json:"key"`
	LicenseType        models.LicenseType   `json:"license_type" validate:"omitempty,oneof=KEY_BASED VOLUME NO_KEY"`
	TotalQuantity      int                  `json:"total_quantity"`
	Price              *decimal.Decimal     `json:"price"`
	PurchaseDate       string               `json:"purchase_date"`
	ExpiryDate         string               `json:"expiry_date"`
	ContractDate       string               `json:"contract_date"`
	NoticePeriodType   string               `json:"notice_period_type" validate:"omitempty,oneof=30 90 custom"`
	NoticePeriodCustom *int                 `json:"notice_period_custom"`
	AdminName          *string              `json:"admin_name"`
	Description        *string              `json:"description"`
	PaymentCycle       *models.PaymentCycle `json:"payment_cycle"`
	UnitPrice          *decimal.Decimal     `json:"unit_price"`
	Currency           models.Currency      `json:"currency"`
	ExchangeRate       *decimal.Decimal     `json:"exchange_rate"`
	IsVatIncluded      bool                 `json:"is_vat_included"`
	RenewalCycle       models.RenewalCycle  `json:"renewal_cycle"`
	CycleMonths        *int                 `json:"cycle_months"`
	FirstPurchasedAt   string               `json:"first_purchased_at"`
	LastRenewedAt      string               `json:"last_renewed_at"`
}

type fieldErrors map[string]string

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return services.Validation("invalid license input").WithDetail("fields", map[string]string(f))
}

// toLicense validates in and copies it onto l.
// Counters, timestamps and the ID of l are left untouched.
func (in Input) toLicense(l *models.License) error {
	errs := fieldErrors{}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs["name"] = "name is required"
	}
	if in.TotalQuantity < 1 {
		errs["total_quantity"] = "quantity must be a number of at least 1"
	}
	if in.Price != nil && in.Price.IsNegative() {
		errs["price"] = "price must be 0 or more"
	}

	licenseType := in.LicenseType
	if licenseType == "" {
		licenseType = models.LicenseTypeKeyBased
	}
	if !models.ValidLicenseType(licenseType) {
		errs["license_type"] = "license type must be KEY_BASED, VOLUME or NO_KEY"
	}

	purchaseDate, ok := parseDate(in.PurchaseDate, "purchase_date", errs)
	if ok && purchaseDate == nil {
		errs["purchase_date"] = "purchase date is required"
	}
	expiryDate, _ := parseDate(in.ExpiryDate, "expiry_date", errs)
	contractDate, _ := parseDate(in.ContractDate, "contract_date", errs)
	firstPurchased, _ := parseDate(in.FirstPurchasedAt, "first_purchased_at", errs)
	lastRenewed, _ := parseDate(in.LastRenewedAt, "last_renewed_at", errs)

	var noticeDays *int
	switch in.NoticePeriodType {
	case "":
	case NoticePeriod30:
		noticeDays = intPtr(30)
	case NoticePeriod90:
		noticeDays = intPtr(90)
	case NoticePeriodCustom:
		if in.NoticePeriodCustom == nil || *in.NoticePeriodCustom < 1 {
			errs["notice_period_custom"] = "notice period must be at least 1 day"
		} else {
			noticeDays = intPtr(*in.NoticePeriodCustom)
		}
	default:
		errs["notice_period_type"] = "notice period must be 30, 90 or custom"
	}

	currency := in.Currency
	if currency == "" {
		currency = models.CurrencyKRW
	}
	if !models.ValidCurrency(currency) {
		errs["currency"] = "unsupported currency"
	}
	if in.PaymentCycle != nil && *in.PaymentCycle != models.PaymentCycleMonthly && *in.PaymentCycle != models.PaymentCycleYearly {
		errs["payment_cycle"] = "payment cycle must be MONTHLY or YEARLY"
	}
	if in.UnitPrice != nil && in.UnitPrice.IsNegative() {
		errs["unit_price"] = "unit price must be 0 or more"
	}
	if in.ExchangeRate != nil && in.ExchangeRate.IsNegative() {
		errs["exchange_rate"] = "exchange rate must be 0 or more"
	}

	renewalCycle := in.RenewalCycle
	if renewalCycle == "" {
		renewalCycle = models.RenewalCycleManual
	}
	if !models.ValidRenewalCycle(renewalCycle) {
		errs["renewal_cycle"] = "renewal cycle must be MANUAL, MONTHLY, ANNUAL or CUSTOM"
	}
	if renewalCycle == models.RenewalCycleCustom && (in.CycleMonths == nil || *in.CycleMonths < 1) {
		errs["cycle_months"] = "cycle months must be at least 1"
	}

	if err := errs.err(); err != nil {
		return err
	}

	l.Name = name
	l.LicenseType = licenseType
	l.Key = nil
	if licenseType == models.LicenseTypeVolume {
		l.Key = trimmed(in.Key)
	}
	l.TotalQuantity = in.TotalQuantity
	l.Price = nullDecimal(in.Price)
	l.PurchaseDate = *purchaseDate
	l.ExpiryDate = expiryDate
	l.ContractDate = contractDate
	l.NoticePeriodDays = noticeDays
	l.AdminName = trimmed(in.AdminName)
	l.Description = trimmed(in.Description)

	l.PaymentCycle = in.PaymentCycle
	l.UnitPrice = nullDecimal(in.UnitPrice)
	l.Currency = currency
	l.ExchangeRate = nullDecimal(in.ExchangeRate)
	l.IsVatIncluded = in.IsVatIncluded
	cost.Apply(l)

	l.RenewalCycle = renewalCycle
	l.CycleMonths = nil
	if renewalCycle == models.RenewalCycleCustom {
		l.CycleMonths = intPtr(*in.CycleMonths)
	}
	l.FirstPurchasedAt = firstPurchased
	l.LastRenewedAt = lastRenewed
	return nil
}

// parseDate parses an optional YYYY-MM-DD value. ok is false when the value is malformed.
func parseDate(raw, field string, errs fieldErrors) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		errs[field] = "date must use the YYYY-MM-DD format"
		return nil, false
	}
	return &t, true
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}

func intPtr(v int) *int { return &v }
