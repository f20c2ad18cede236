package types

import "errors"

// Monetary constants in base units
const (
	// CoinUnits is the number of base units per coin
	CoinUnits = 100_000_000

	// MaxMoney is the monetary supply cap in base units
	MaxMoney = 21_000_000 * CoinUnits

	// DefaultFee is the conventional fee for a shielded transaction
	DefaultFee Amount = 1000
)

// ErrAmountOutOfRange is returned when an amount or a sum of amounts
// leaves the valid range [-MaxMoney, MaxMoney]
var ErrAmountOutOfRange = errors.New("amount out of range")

// Amount is a signed quantity of base units. Negative amounts appear only
// in balance arithmetic (fees, change); note values themselves are
// non-negative.
type Amount int64

// AmountFromInt64 validates v as an amount
func AmountFromInt64(v int64) (Amount, error) {
	a := Amount(v)
	if !a.valid() {
		return 0, ErrAmountOutOfRange
	}
	return a, nil
}

// AmountFromUint64 validates v as a non-negative amount
func AmountFromUint64(v uint64) (Amount, error) {
	if v > MaxMoney {
		return 0, ErrAmountOutOfRange
	}
	return Amount(v), nil
}

// NonNegativeAmount validates v as a non-negative amount
func NonNegativeAmount(v int64) (Amount, error) {
	if v < 0 || v > MaxMoney {
		return 0, ErrAmountOutOfRange
	}
	return Amount(v), nil
}

// Add returns a+b, or an error if the sum leaves the valid range
func (a Amount) Add(b Amount) (Amount, error) {
	sum := a + b
	if !sum.valid() {
		return 0, ErrAmountOutOfRange
	}
	return sum, nil
}

// Sub returns a-b, or an error if the difference leaves the valid range
func (a Amount) Sub(b Amount) (Amount, error) {
	diff := a - b
	if !diff.valid() {
		return 0, ErrAmountOutOfRange
	}
	return diff, nil
}

// IsNonNegative returns true if the amount is zero or positive
func (a Amount) IsNonNegative() bool {
	return a >= 0
}

// Int64 returns the amount as a raw int64
func (a Amount) Int64() int64 {
	return int64(a)
}

func (a Amount) valid() bool {
	return a >= -MaxMoney && a <= MaxMoney
}
