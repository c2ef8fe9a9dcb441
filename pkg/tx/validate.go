package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Count limits enforced by Validate.
const (
	MaxInputs  = 1024
	MaxOutputs = 1024
)

// Validation errors.
var (
	ErrDuplicateInput = errors.New("duplicate input")
	ErrZeroOutput     = errors.New("output value is zero")
	ErrTooManyInputs  = errors.New("too many inputs")
	ErrTooManyOutputs = errors.New("too many outputs")
)

// Validate checks transaction structure. It does not check that the
// inputs exist or that the transaction balances.
func (tx *Transaction) Validate() error {
	if len(tx.Inputs) == 0 {
		return ErrNoInputs
	}
	if len(tx.Outputs) == 0 {
		return ErrNoOutputs
	}
	if len(tx.Inputs) > MaxInputs {
		return fmt.Errorf("%w: %d inputs, max %d", ErrTooManyInputs, len(tx.Inputs), MaxInputs)
	}
	if len(tx.Outputs) > MaxOutputs {
		return fmt.Errorf("%w: %d outputs, max %d", ErrTooManyOutputs, len(tx.Outputs), MaxOutputs)
	}

	seen := make(map[types.Outpoint]bool, len(tx.Inputs))
	for i, in := range tx.Inputs {
		if seen[in] {
			return fmt.Errorf("input %d: %w", i, ErrDuplicateInput)
		}
		seen[in] = true
	}

	total := coin.Zero
	for i, out := range tx.Outputs {
		if out.Value == 0 {
			return fmt.Errorf("output %d: %w", i, ErrZeroOutput)
		}
		var err error
		if total, err = coin.Add(total, out.Value); err != nil {
			return fmt.Errorf("output %d: %w", i, err)
		}
	}
	return nil
}
