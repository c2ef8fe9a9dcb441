// Package fee defines the pluggable fee policies used to price transactions
// by their serialized size.
package fee

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
)

// Algorithm prices a transaction by its exact serialized size in bytes.
// Implementations must be pure: the same size always yields the same fee.
type Algorithm interface {
	// EstimateFee returns the full fee for a transaction of size bytes.
	EstimateFee(size int) (coin.Coin, error)
	// EstimateOverhead returns the marginal fee of size extra bytes,
	// without any fixed component. Used by input selection.
	EstimateOverhead(size int) (coin.Coin, error)
}

// LinearFee is the affine policy fee = Constant + Coefficient*size.
type LinearFee struct {
	Constant    Milli `json:"constant"`
	Coefficient Milli `json:"coefficient"`
}

// Default linear fee schedule: 155381 + 43.946 per byte.
var (
	DefaultConstant    = MustMilli(155381, 0)
	DefaultCoefficient = MustMilli(43, 946)
)

// NewLinearFee creates a linear fee policy.
func NewLinearFee(constant, coefficient Milli) LinearFee {
	return LinearFee{Constant: constant, Coefficient: coefficient}
}

// DefaultLinearFee returns the default linear fee schedule.
func DefaultLinearFee() LinearFee {
	return NewLinearFee(DefaultConstant, DefaultCoefficient)
}

// EstimateFee returns ceil(Constant + Coefficient*size).
func (f LinearFee) EstimateFee(size int) (coin.Coin, error) {
	variable, err := f.variable(size)
	if err != nil {
		return 0, err
	}
	total, err := f.Constant.Add(variable)
	if err != nil {
		return 0, err
	}
	return coin.New(total.Ceil())
}

// EstimateOverhead returns ceil(Coefficient*size).
func (f LinearFee) EstimateOverhead(size int) (coin.Coin, error) {
	variable, err := f.variable(size)
	if err != nil {
		return 0, err
	}
	return coin.New(variable.Ceil())
}

func (f LinearFee) variable(size int) (Milli, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative size %d", size)
	}
	msz, err := Integral(uint64(size))
	if err != nil {
		return 0, err
	}
	return f.Coefficient.Mul(msz)
}

// String describes the schedule.
func (f LinearFee) String() string {
	return fmt.Sprintf("%s + %s/byte", f.Constant, f.Coefficient)
}

// PerByte is a flat rate with no fixed component: fee = Rate*size.
type PerByte struct {
	Rate coin.Coin `json:"rate"`
}

// EstimateFee returns Rate*size.
func (p PerByte) EstimateFee(size int) (coin.Coin, error) {
	return p.EstimateOverhead(size)
}

// EstimateOverhead returns Rate*size.
func (p PerByte) EstimateOverhead(size int) (coin.Coin, error) {
	if size < 0 {
		return 0, fmt.Errorf("negative size %d", size)
	}
	if size > 0 && uint64(p.Rate) > uint64(coin.MaxCoin)/uint64(size) {
		return 0, fmt.Errorf("%w: rate %d * %d bytes", coin.ErrOutOfBounds, p.Rate, size)
	}
	return coin.New(uint64(p.Rate) * uint64(size))
}
