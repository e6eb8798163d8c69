package domain

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// KoboPerNaira is the fixed minor-unit factor applied at the API boundary.
const KoboPerNaira = 100

var (
	koboFactor = decimal.NewFromInt(KoboPerNaira)
	maxKobo    = decimal.NewFromInt(math.MaxInt64)
	minKobo    = decimal.NewFromInt(math.MinInt64)
)

// ErrAmountTooLarge is returned when an amount does not fit in int64 kobo.
var ErrAmountTooLarge = errors.New("amount too large")

// Money is an amount in kobo. The ledger never stores anything else.
type Money int64

// Kobo returns the raw minor-unit value.
func (m Money) Kobo() int64 {
	return int64(m)
}

// ToNaira converts kobo to a naira decimal for presentation.
func (m Money) ToNaira() decimal.Decimal {
	return decimal.NewFromInt(int64(m)).Div(koboFactor)
}

// FromNaira converts a naira decimal to kobo. Fractions of a kobo are rejected.
func FromNaira(d decimal.Decimal) (Money, error) {
	kobo := d.Mul(koboFactor)
	if !kobo.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	if kobo.GreaterThan(maxKobo) || kobo.LessThan(minKobo) {
		return 0, fmt.Errorf("%w: %s", ErrAmountTooLarge, d.String())
	}
	return Money(kobo.IntPart()), nil
}

// String returns the amount formatted as naira.
func (m Money) String() string {
	return fmt.Sprintf("NGN %s", m.ToNaira().StringFixed(2))
}
