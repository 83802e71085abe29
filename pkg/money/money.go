// Package money provides fixed-point arithmetic for wagering amounts.
// All ledger balances and bet amounts are int64 minor units (cents); decimal
// math is used only to compute payouts, which are then rounded back to cents.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FromCents converts minor units to a decimal currency value.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ToCents converts a decimal currency value to minor units, rounding
// half-down (a half cent never rounds in the player's favour).
func ToCents(d decimal.Decimal) int64 {
	return roundHalfDown(d.Mul(hundred)).IntPart()
}

// ToCentsFloat converts a client-supplied float amount to minor units,
// rounding half-down.
func ToCentsFloat(f float64) int64 {
	return ToCents(decimal.NewFromFloat(f))
}

// MulMultiplier applies a payout multiplier to a cent amount and rounds
// half-down to the cent.
func MulMultiplier(cents int64, multiplier decimal.Decimal) int64 {
	return ToCents(FromCents(cents).Mul(multiplier))
}

// ProRataShare computes floor((stake/totalWinning) * distributable * 100) / 100
// in cents. The floor guarantees the sum of shares never exceeds the
// distributable pot.
func ProRataShare(stakeCents, totalWinningCents, distributableCents int64) int64 {
	if totalWinningCents <= 0 {
		return 0
	}
	share := FromCents(stakeCents).
		Div(FromCents(totalWinningCents)).
		Mul(FromCents(distributableCents))
	return share.Mul(hundred).Floor().IntPart()
}

// ApplyEdge scales a cent amount by (1 - houseEdge), flooring to the cent.
func ApplyEdge(cents int64, houseEdge decimal.Decimal) int64 {
	scaled := FromCents(cents).Mul(decimal.NewFromInt(1).Sub(houseEdge))
	return scaled.Mul(hundred).Floor().IntPart()
}

// Format renders a cent amount as a plain currency string, e.g. 12345 -> "123.45".
func Format(cents int64) string {
	return FromCents(cents).StringFixed(2)
}

// roundHalfDown rounds to an integer; exact halves round toward zero.
func roundHalfDown(d decimal.Decimal) decimal.Decimal {
	floor := d.Floor()
	frac := d.Sub(floor)
	half := decimal.New(5, -1)
	if frac.GreaterThan(half) {
		return floor.Add(decimal.NewFromInt(1))
	}
	return floor
}

// ParseAmount parses a client-supplied currency string into cents,
// rejecting non-positive and malformed values.
func ParseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := ToCents(d)
	if cents <= 0 {
		return 0, fmt.Errorf("amount must be positive")
	}
	return cents, nil
}
