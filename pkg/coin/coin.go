// Package coin implements bounded monetary values.
//
// Every amount in a transaction is a Coin. Arithmetic never wraps and never
// goes negative: an operation that would leave the range [0, Limit.Max]
// fails with ErrOutOfBounds instead.
package coin

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxCoin is the protocol maximum for any single value or total (45 billion coins).
const MaxCoin Coin = 45_000_000_000_000_000

// Denomination. 1 coin = 10^6 base units.
const (
	Decimals = 6
	Unit     = 1_000_000
)

// ErrOutOfBounds is returned when a value or an arithmetic result leaves [0, Max].
var ErrOutOfBounds = errors.New("coin value out of bounds")

// Coin is an amount of base units.
type Coin uint64

// Zero is the zero amount.
const Zero Coin = 0

// Limit bounds coin arithmetic. The bound is a protocol parameter, so it is
// carried as a value instead of being baked into the operations.
type Limit struct {
	Max Coin
}

// DefaultLimit bounds values by MaxCoin.
var DefaultLimit = Limit{Max: MaxCoin}

// New returns v as a Coin, or ErrOutOfBounds if v exceeds the limit.
func (l Limit) New(v uint64) (Coin, error) {
	if v > uint64(l.Max) {
		return 0, fmt.Errorf("%w: %d exceeds max %d", ErrOutOfBounds, v, l.Max)
	}
	return Coin(v), nil
}

// Add returns a+b, or ErrOutOfBounds if the sum exceeds the limit.
func (l Limit) Add(a, b Coin) (Coin, error) {
	if a > l.Max || b > l.Max || a > l.Max-b {
		return 0, fmt.Errorf("%w: %d + %d exceeds max %d", ErrOutOfBounds, a, b, l.Max)
	}
	return a + b, nil
}

// Sub returns a-b, or ErrOutOfBounds if b > a.
func (l Limit) Sub(a, b Coin) (Coin, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d is negative", ErrOutOfBounds, a, b)
	}
	return a - b, nil
}

// Sum adds values left to right, checking the bound after every step.
// The sum of no values is zero.
func (l Limit) Sum(values ...Coin) (Coin, error) {
	var total Coin
	for i, v := range values {
		next, err := l.Add(total, v)
		if err != nil {
			return 0, fmt.Errorf("value %d: %w", i, err)
		}
		total = next
	}
	return total, nil
}

// New returns v as a Coin bounded by MaxCoin.
func New(v uint64) (Coin, error) { return DefaultLimit.New(v) }

// Add returns a+b bounded by MaxCoin.
func Add(a, b Coin) (Coin, error) { return DefaultLimit.Add(a, b) }

// Sub returns a-b, failing on a negative result.
func Sub(a, b Coin) (Coin, error) { return DefaultLimit.Sub(a, b) }

// Sum adds values bounded by MaxCoin.
func Sum(values ...Coin) (Coin, error) { return DefaultLimit.Sum(values...) }

// Uint64 returns the raw base-unit value.
func (c Coin) Uint64() uint64 { return uint64(c) }

// String returns the base-unit value in decimal.
func (c Coin) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// Format returns the value as a decimal coin amount, e.g. "1.500000".
func (c Coin) Format() string {
	return fmt.Sprintf("%d.%06d", uint64(c)/Unit, uint64(c)%Unit)
}

// Parse converts a decimal coin amount ("12", "0.5", "3.000001") to base units.
func Parse(s string) (Coin, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative amount")
	}

	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid whole part: %w", err)
	}

	var frac uint64
	if len(parts) == 2 {
		fracStr := parts[1]
		if len(fracStr) > Decimals {
			return 0, fmt.Errorf("too many decimal places (max %d)", Decimals)
		}
		fracStr += strings.Repeat("0", Decimals-len(fracStr))
		frac, err = strconv.ParseUint(fracStr, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fractional part: %w", err)
		}
	}

	if whole > uint64(MaxCoin)/Unit {
		return 0, fmt.Errorf("%w: %s", ErrOutOfBounds, s)
	}
	return New(whole*Unit + frac)
}
