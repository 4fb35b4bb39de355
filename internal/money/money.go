package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is the only currency the ledger operates in.
const Currency = "INR"

var (
	// ErrNotPositive indicates a zero or negative amount.
	ErrNotPositive = errors.New("amount must be positive")

	// ErrPrecision indicates an amount carrying more than two decimal places.
	ErrPrecision = errors.New("amount must have at most two decimal places")

	// ErrOutOfBounds indicates an amount outside the configured per-transaction window.
	ErrOutOfBounds = errors.New("amount outside allowed bounds")
)

// ToMinor converts a decimal rupee amount into paise, validating that the
// amount is positive and carries at most two decimal places.
func ToMinor(amount decimal.Decimal) (int64, error) {
	if !amount.IsPositive() {
		return 0, ErrNotPositive
	}
	if amount.Exponent() < -2 {
		// Trailing zeros are fine as long as the value itself fits in paise.
		truncated := amount.Truncate(2)
		if !truncated.Equal(amount) {
			return 0, ErrPrecision
		}
		amount = truncated
	}
	return amount.Shift(2).IntPart(), nil
}

// FromMinor converts paise back into a decimal rupee amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// FormatMinor renders paise as a fixed two-decimal rupee string.
func FormatMinor(minor int64) string {
	return FromMinor(minor).StringFixed(2)
}

// CheckBounds validates a paise amount against the configured per-transaction
// window.
func CheckBounds(minor, minMinor, maxMinor int64) error {
	if minor < minMinor {
		return fmt.Errorf("%w: minimum is %s", ErrOutOfBounds, FormatMinor(minMinor))
	}
	if minor > maxMinor {
		return fmt.Errorf("%w: maximum is %s", ErrOutOfBounds, FormatMinor(maxMinor))
	}
	return nil
}
