package coin

import "fmt"

// Sign tags a Diff as zero, positive or negative.
type Sign uint8

const (
	SignZero Sign = iota
	SignPositive
	SignNegative
)

// String returns a human-readable name for the sign.
func (s Sign) String() string {
	switch s {
	case SignZero:
		return "Zero"
	case SignPositive:
		return "Positive"
	case SignNegative:
		return "Negative"
	default:
		return "Unknown"
	}
}

// Diff is a signed difference between two coins, kept as sign plus magnitude
// so it never needs a signed integer.
type Diff struct {
	Sign  Sign
	Value Coin
}

// Differential returns a-b.
func Differential(a, b Coin) Diff {
	switch {
	case a > b:
		return Diff{Sign: SignPositive, Value: a - b}
	case a < b:
		return Diff{Sign: SignNegative, Value: b - a}
	default:
		return Diff{Sign: SignZero}
	}
}

// IsZero reports whether the difference is exactly zero.
func (d Diff) IsZero() bool { return d.Sign == SignZero }

// IsPositive reports whether the first operand was larger.
func (d Diff) IsPositive() bool { return d.Sign == SignPositive }

// IsNegative reports whether the first operand was smaller.
func (d Diff) IsNegative() bool { return d.Sign == SignNegative }

// String formats the difference as "+n", "-n" or "0".
func (d Diff) String() string {
	switch d.Sign {
	case SignPositive:
		return fmt.Sprintf("+%d", d.Value)
	case SignNegative:
		return fmt.Sprintf("-%d", d.Value)
	default:
		return "0"
	}
}
