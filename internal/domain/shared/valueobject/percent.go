package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a percentage in the closed range [0, 100].
type Percent struct {
	value decimal.Decimal
}

// TaxRate is the fixed VAT (IVA) rate applied to purchase-order subtotals.
var TaxRate = MustPercent(decimal.NewFromInt(16))

// NewPercent validates the range and returns a Percent
func NewPercent(value decimal.Decimal) (Percent, error) {
	if value.IsNegative() || value.GreaterThan(hundred) {
		return Percent{}, fmt.Errorf("percentage must be between 0 and 100, got %s", value.String())
	}
	return Percent{value: value}, nil
}

// MustPercent panics on out-of-range input; use only for constants
func MustPercent(value decimal.Decimal) Percent {
	p, err := NewPercent(value)
	if err != nil {
		panic(err)
	}
	return p
}

// Decimal returns the raw percentage (16 for 16%)
func (p Percent) Decimal() decimal.Decimal {
	return p.value
}

// IsZero reports a 0% rate
func (p Percent) IsZero() bool {
	return p.value.IsZero()
}

// String renders e.g. "16%"
func (p Percent) String() string {
	return p.value.String() + "%"
}

// ApplyPercent returns amount × pct / 100. Shift keeps the result exact.
func ApplyPercent(amount decimal.Decimal, pct Percent) decimal.Decimal {
	return amount.Mul(pct.value).Shift(-2)
}

// ApplyTax returns the VAT owed on subtotal
func ApplyTax(subtotal decimal.Decimal) decimal.Decimal {
	return ApplyPercent(subtotal, TaxRate)
}
