package fee

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
	"strings"
)

// ErrOverflow is returned when fixed-point arithmetic exceeds 64 bits.
var ErrOverflow = errors.New("fee arithmetic overflow")

// Milli is a non-negative fixed-point number with three decimal places,
// stored as thousandths. It lets fee coefficients carry fractions without
// floating point.
type Milli uint64

const milliScale = 1000

// NewMilli returns integral + frac/1000. frac must be below 1000.
func NewMilli(integral, frac uint64) (Milli, error) {
	if frac >= milliScale {
		return 0, fmt.Errorf("fraction %d must be below %d", frac, milliScale)
	}
	hi, lo := bits.Mul64(integral, milliScale)
	if hi != 0 {
		return 0, fmt.Errorf("%w: integral %d", ErrOverflow, integral)
	}
	sum, carry := bits.Add64(lo, frac, 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d.%03d", ErrOverflow, integral, frac)
	}
	return Milli(sum), nil
}

// ParseMilli parses a decimal such as "155381" or "43.946". At most three
// fractional digits are accepted.
func ParseMilli(s string) (Milli, error) {
	intPart, fracPart, hasFrac := strings.Cut(strings.TrimSpace(s), ".")
	if intPart == "" || (hasFrac && (fracPart == "" || len(fracPart) > 3)) {
		return 0, fmt.Errorf("invalid fixed-point value %q", s)
	}
	integral, err := strconv.ParseUint(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid fixed-point value %q: %w", s, err)
	}
	var frac uint64
	if hasFrac {
		frac, err = strconv.ParseUint(fracPart+strings.Repeat("0", 3-len(fracPart)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid fixed-point value %q: %w", s, err)
		}
	}
	return NewMilli(integral, frac)
}

// MarshalText implements encoding.TextMarshaler.
func (m Milli) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Milli) UnmarshalText(text []byte) error {
	v, err := ParseMilli(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Integral returns v as a Milli with no fractional part.
func Integral(v uint64) (Milli, error) {
	return NewMilli(v, 0)
}

// MustMilli is NewMilli for constants known to fit.
func MustMilli(integral, frac uint64) Milli {
	m, err := NewMilli(integral, frac)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m+o.
func (m Milli) Add(o Milli) (Milli, error) {
	if m > math.MaxUint64-o {
		return 0, fmt.Errorf("%w: %s + %s", ErrOverflow, m, o)
	}
	return m + o, nil
}

// Mul returns m*o, truncated to three decimal places.
func (m Milli) Mul(o Milli) (Milli, error) {
	hi, lo := bits.Mul64(uint64(m), uint64(o))
	if hi >= milliScale {
		return 0, fmt.Errorf("%w: %s * %s", ErrOverflow, m, o)
	}
	q, _ := bits.Div64(hi, lo, milliScale)
	return Milli(q), nil
}

// Ceil returns the smallest integer not below m. Fees round up so a
// fractional base unit is never left unpaid.
func (m Milli) Ceil() uint64 {
	q := uint64(m) / milliScale
	if uint64(m)%milliScale != 0 {
		q++
	}
	return q
}

// Trunc returns the integer part of m.
func (m Milli) Trunc() uint64 {
	return uint64(m) / milliScale
}

// Millis returns the raw number of thousandths.
func (m Milli) Millis() uint64 {
	return uint64(m)
}

// String formats m as "integral.fff".
func (m Milli) String() string {
	return fmt.Sprintf("%d.%03d", uint64(m)/milliScale, uint64(m)%milliScale)
}
