package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/fee"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// DefaultMaxTxSize is the largest encoded signed transaction accepted.
const DefaultMaxTxSize = 65536

// Params are the protocol parameters a builder and finalizer work under.
type Params struct {
	Fee       fee.Algorithm
	Limit     coin.Limit
	MaxTxSize int
}

// DefaultParams returns the default linear fee, coin.MaxCoin and a
// 64 KiB size limit.
func DefaultParams() Params {
	return Params{
		Fee:       fee.DefaultLinearFee(),
		Limit:     coin.DefaultLimit,
		MaxTxSize: DefaultMaxTxSize,
	}
}

// Builder accumulates inputs and outputs. Totals and fee are recomputed
// from the current contents on every call.
type Builder struct {
	params    Params
	inputs    []Input
	outputs   []Output
	change    int // index of the change output, -1 if none
	finalized bool
}

// NewBuilder creates an empty builder.
func NewBuilder(params Params) *Builder {
	return &Builder{params: params, change: -1}
}

// Params returns the builder's parameters.
func (b *Builder) Params() Params {
	return b.params
}

// AddInput appends an input worth value. It fails without modifying the
// builder if the input total would exceed the coin limit.
func (b *Builder) AddInput(prevOut types.Outpoint, value coin.Coin) error {
	if b.finalized {
		return ErrBuilderFinalized
	}
	total, err := b.InputTotal()
	if err != nil {
		return err
	}
	if _, err := b.params.Limit.Add(total, value); err != nil {
		return fmt.Errorf("add input %s: %w", prevOut, err)
	}
	b.inputs = append(b.inputs, Input{PrevOut: prevOut, Value: value})
	return nil
}

// AddOutput appends an output. Overflow of the output total surfaces
// from OutputTotal, Balance and Fee.
func (b *Builder) AddOutput(out Output) error {
	if b.finalized {
		return ErrBuilderFinalized
	}
	b.outputs = append(b.outputs, out)
	return nil
}

// RemoveInput drops the input at index i.
func (b *Builder) RemoveInput(i int) error {
	if b.finalized {
		return ErrBuilderFinalized
	}
	if i < 0 || i >= len(b.inputs) {
		return fmt.Errorf("input %d: %w", i, ErrIndexOutOfRange)
	}
	b.inputs = append(b.inputs[:i], b.inputs[i+1:]...)
	return nil
}

// RemoveOutput drops the output at index i. Removing the change output
// allows AddChangeAddr to be called again.
func (b *Builder) RemoveOutput(i int) error {
	if b.finalized {
		return ErrBuilderFinalized
	}
	if i < 0 || i >= len(b.outputs) {
		return fmt.Errorf("output %d: %w", i, ErrIndexOutOfRange)
	}
	b.outputs = append(b.outputs[:i], b.outputs[i+1:]...)
	switch {
	case b.change == i:
		b.change = -1
	case b.change > i:
		b.change--
	}
	return nil
}

// Inputs returns a copy of the inputs.
func (b *Builder) Inputs() []Input {
	return append([]Input(nil), b.inputs...)
}

// Outputs returns a copy of the outputs.
func (b *Builder) Outputs() []Output {
	return append([]Output(nil), b.outputs...)
}

// InputTotal sums the input values.
func (b *Builder) InputTotal() (coin.Coin, error) {
	values := make([]coin.Coin, len(b.inputs))
	for i, in := range b.inputs {
		values[i] = in.Value
	}
	return b.params.Limit.Sum(values...)
}

// OutputTotal sums the output values.
func (b *Builder) OutputTotal() (coin.Coin, error) {
	values := make([]coin.Coin, len(b.outputs))
	for i, out := range b.outputs {
		values[i] = out.Value
	}
	return b.params.Limit.Sum(values...)
}

// Fee returns the fee for the current contents, sized with one witness
// per input.
func (b *Builder) Fee() (coin.Coin, error) {
	return b.feeFor(b.outputs)
}

func (b *Builder) feeFor(outputs []Output) (coin.Coin, error) {
	tx := &Transaction{Inputs: b.outpoints(), Outputs: outputs}
	return b.params.Fee.EstimateFee(SignedSize(tx, len(b.inputs)))
}

// Balance returns inputs - (outputs + fee).
func (b *Builder) Balance() (coin.Diff, error) {
	in, err := b.InputTotal()
	if err != nil {
		return coin.Diff{}, err
	}
	out, err := b.OutputTotal()
	if err != nil {
		return coin.Diff{}, err
	}
	f, err := b.Fee()
	if err != nil {
		return coin.Diff{}, err
	}
	spent, err := b.params.Limit.Add(out, f)
	if err != nil {
		return coin.Diff{}, err
	}
	return coin.Differential(in, spent), nil
}

// BalanceWithoutFees returns inputs - outputs.
func (b *Builder) BalanceWithoutFees() (coin.Diff, error) {
	in, err := b.InputTotal()
	if err != nil {
		return coin.Diff{}, err
	}
	out, err := b.OutputTotal()
	if err != nil {
		return coin.Diff{}, err
	}
	return coin.Differential(in, out), nil
}

// AddChangeAddr sends the positive balance to addr. The change value c is
// the largest for which c + fee(tx with change c) <= inputs - outputs; it
// is exact (balance zero) unless adding one more unit would widen the
// encoded value, in which case the residual stays with the fee.
//
// When the balance is zero or negative nothing is added and the returned
// output is nil. A second change output is refused with ErrChangeApplied.
func (b *Builder) AddChangeAddr(addr types.Address) (*Output, error) {
	if b.finalized {
		return nil, ErrBuilderFinalized
	}
	if b.change >= 0 {
		return nil, ErrChangeApplied
	}
	bal, err := b.Balance()
	if err != nil {
		return nil, err
	}
	if !bal.IsPositive() {
		return nil, nil
	}
	leftover, err := b.BalanceWithoutFees()
	if err != nil {
		return nil, err
	}

	value, err := b.solveChange(addr, leftover.Value)
	if err != nil {
		return nil, err
	}
	out := Output{Address: addr, Value: value}
	b.outputs = append(b.outputs, out)
	b.change = len(b.outputs) - 1
	return &out, nil
}

// solveChange finds the largest c >= 1 with c + fee(c) <= leftover. The
// encoded size, and so the fee, only changes when c crosses a CBOR width
// boundary, so each width class has a single fee and at most one
// candidate. Classes are tried widest first.
func (b *Builder) solveChange(addr types.Address, leftover coin.Coin) (coin.Coin, error) {
	outputs := make([]Output, len(b.outputs)+1)
	copy(outputs, b.outputs)
	last := len(outputs) - 1

	for i := len(uintClasses) - 1; i >= 0; i-- {
		lo, hi := uintClasses[i].lo, uintClasses[i].hi
		if lo == 0 {
			lo = 1
		}
		if hi > uint64(b.params.Limit.Max) {
			hi = uint64(b.params.Limit.Max)
		}
		if lo > hi || lo > uint64(leftover) {
			continue
		}

		outputs[last] = Output{Address: addr, Value: coin.Coin(lo)}
		f, err := b.feeFor(outputs)
		if err != nil {
			return 0, err
		}
		if f >= leftover {
			continue
		}
		c := uint64(leftover - f)
		if c < lo {
			continue
		}
		if c > hi {
			c = hi
		}
		return coin.Coin(c), nil
	}
	return 0, fmt.Errorf("%w: leftover %d", ErrChangeNotCovered, leftover)
}

// Finalize freezes the builder and returns the transaction. The builder
// rejects further changes.
func (b *Builder) Finalize() (*Transaction, error) {
	if b.finalized {
		return nil, ErrBuilderFinalized
	}
	if len(b.inputs) == 0 {
		return nil, ErrNoInputs
	}
	if len(b.outputs) == 0 {
		return nil, ErrNoOutputs
	}
	b.finalized = true
	return &Transaction{
		Inputs:  b.outpoints(),
		Outputs: append([]Output(nil), b.outputs...),
	}, nil
}

func (b *Builder) outpoints() []types.Outpoint {
	ops := make([]types.Outpoint, len(b.inputs))
	for i, in := range b.inputs {
		ops[i] = in.PrevOut
	}
	return ops
}
