package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LicenseType represents how a license is keyed and counted
type LicenseType string

const (
	LicenseTypeKeyBased LicenseType = "KEY_BASED" // one key per seat
	LicenseTypeVolume   LicenseType = "VOLUME"    // one shared key, counted by assignments
	LicenseTypeNoKey    LicenseType = "NO_KEY"
)

// PaymentCycle represents the billing period of a license
type PaymentCycle string

const (
	PaymentCycleMonthly PaymentCycle = "MONTHLY"
	PaymentCycleYearly  PaymentCycle = "YEARLY"
)

// Currency is an ISO currency code accepted for license pricing
type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyJPY Currency = "JPY"
	CurrencyGBP Currency = "GBP"
	CurrencyCNY Currency = "CNY"
)

// RenewalCycle controls how the next renewal date is derived
type RenewalCycle string

const (
	RenewalCycleManual  RenewalCycle = "MANUAL"
	RenewalCycleMonthly RenewalCycle = "MONTHLY"
	RenewalCycleAnnual  RenewalCycle = "ANNUAL"
	RenewalCycleCustom  RenewalCycle = "CUSTOM"
)

// License represents a purchased software license
type License struct {
	ID               int64               `json:"id" db:"id"`
	Name             string              `json:"name" db:"name"`
	Key              *string             `json:"key,omitempty" db:"key"` // volume licenses only
	LicenseType      LicenseType         `json:"license_type" db:"license_type"`
	TotalQuantity    int                 `json:"total_quantity" db:"total_quantity"`
	Price            decimal.NullDecimal `json:"price" db:"price"`
	PurchaseDate     time.Time           `json:"purchase_date" db:"purchase_date"`
	ExpiryDate       *time.Time          `json:"expiry_date,omitempty" db:"expiry_date"`
	ContractDate     *time.Time          `json:"contract_date,omitempty" db:"contract_date"`
	NoticePeriodDays *int                `json:"notice_period_days,omitempty" db:"notice_period_days"`
	AdminName        *string             `json:"admin_name,omitempty" db:"admin_name"`
	Description      *string             `json:"description,omitempty" db:"description"`

	// Cost
	PaymentCycle       *PaymentCycle       `json:"payment_cycle,omitempty" db:"payment_cycle"`
	UnitPrice          decimal.NullDecimal `json:"unit_price" db:"unit_price"`
	Currency           Currency            `json:"currency" db:"currency"`
	ExchangeRate       decimal.NullDecimal `json:"exchange_rate" db:"exchange_rate"`
	IsVatIncluded      bool                `json:"is_vat_included" db:"is_vat_included"`
	TotalAmountForeign *int64              `json:"total_amount_foreign,omitempty" db:"total_amount_foreign"`
	TotalAmountKRW     *int64              `json:"total_amount_krw,omitempty" db:"total_amount_krw"`

	// Renewal
	RenewalCycle     RenewalCycle `json:"renewal_cycle" db:"renewal_cycle"`
	CycleMonths      *int         `json:"cycle_months,omitempty" db:"cycle_months"`
	FirstPurchasedAt *time.Time   `json:"first_purchased_at,omitempty" db:"first_purchased_at"`
	LastRenewedAt    *time.Time   `json:"last_renewed_at,omitempty" db:"last_renewed_at"`
	RenewalDate      *time.Time   `json:"renewal_date,omitempty" db:"renewal_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the License model
func (License) TableName() string {
	return "licenses"
}

// NewLicense creates a new License with defaults applied
func NewLicense(name string, licenseType LicenseType, totalQuantity int, purchaseDate time.Time) *License {
	now := time.Now()
	return &License{
		Name:          name,
		LicenseType:   licenseType,
		TotalQuantity: totalQuantity,
		PurchaseDate:  purchaseDate,
		Currency:      CurrencyKRW,
		RenewalCycle:  RenewalCycleManual,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsVolume returns true when the license shares one key across all assignments
func (l *License) IsVolume() bool {
	return l.LicenseType == LicenseTypeVolume
}

// TracksSeats returns true when assignments consume individual seats
func (l *License) TracksSeats() bool {
	return !l.IsVolume()
}

// KeyLabel describes how the license is keyed, as shown in assignment reasons
func (l *License) KeyLabel() string {
	switch l.LicenseType {
	case LicenseTypeVolume:
		return "Volume Key"
	case LicenseTypeNoKey:
		return "No Key"
	default:
		return "Individual Key"
	}
}

// LicenseSummary is a license with its assignment counters
type LicenseSummary struct {
	License
	AssignedQuantity  int `json:"assigned_quantity" db:"assigned_quantity"`
	RemainingQuantity int `json:"remaining_quantity" db:"remaining_quantity"`
}

// LicenseDetail is a license with its seats and assignments
type LicenseDetail struct {
	License
	Seats       []*SeatUsage        `json:"seats"`
	Assignments []*AssignmentDetail `json:"assignments"`
}

// ValidLicenseType reports whether t is a known license type
func ValidLicenseType(t LicenseType) bool {
	switch t {
	case LicenseTypeKeyBased, LicenseTypeVolume, LicenseTypeNoKey:
		return true
	}
	return false
}

// ValidCurrency reports whether c is a supported currency
func ValidCurrency(c Currency) bool {
	switch c {
	case CurrencyKRW, CurrencyUSD, CurrencyEUR, CurrencyJPY, CurrencyGBP, CurrencyCNY:
		return true
	}
	return false
}

// ValidRenewalCycle reports whether c is a known renewal cycle
func ValidRenewalCycle(c RenewalCycle) bool {
	switch c {
	case RenewalCycleManual, RenewalCycleMonthly, RenewalCycleAnnual, RenewalCycleCustom:
		return true
	}
	return false
}
