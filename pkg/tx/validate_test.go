package tx

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

func TestValidate(t *testing.T) {
	op := testOutpoint(1)
	out := Output{Address: testAddr(1), Value: 1000}

	many := make([]types.Outpoint, MaxInputs+1)
	for i := range many {
		many[i] = types.Outpoint{Index: uint32(i)}
	}

	tests := []struct {
		name string
		tx   *Transaction
		want error
	}{
		{"valid", &Transaction{Inputs: []types.Outpoint{op}, Outputs: []Output{out}}, nil},
		{"no inputs", &Transaction{Outputs: []Output{out}}, ErrNoInputs},
		{"no outputs", &Transaction{Inputs: []types.Outpoint{op}}, ErrNoOutputs},
		{"duplicate input", &Transaction{Inputs: []types.Outpoint{op, op}, Outputs: []Output{out}}, ErrDuplicateInput},
		{"zero output", &Transaction{Inputs: []types.Outpoint{op}, Outputs: []Output{{Address: testAddr(1)}}}, ErrZeroOutput},
		{"too many inputs", &Transaction{Inputs: many, Outputs: []Output{out}}, ErrTooManyInputs},
		{"output overflow", &Transaction{
			Inputs:  []types.Outpoint{op},
			Outputs: []Output{{Value: coin.MaxCoin}, {Value: 1}},
		}, ErrCoinOutOfBounds},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tx.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("valid tx should pass: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTotalOutputValue(t *testing.T) {
	tx := &Transaction{Outputs: []Output{{Value: 1}, {Value: 2}, {Value: 3}}}
	got, err := tx.TotalOutputValue()
	if err != nil || got != 6 {
		t.Errorf("TotalOutputValue() = %d, %v; want 6", got, err)
	}

	tx.Outputs = append(tx.Outputs, Output{Value: coin.MaxCoin})
	if _, err := tx.TotalOutputValue(); !errors.Is(err, ErrCoinOutOfBounds) {
		t.Errorf("expected ErrCoinOutOfBounds, got %v", err)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{nil, CodeSuccess},
		{ErrNoOutputs, CodeNoOutputs},
		{ErrNoInputs, CodeNoInputs},
		{ErrSignatureMismatch, CodeSignatureMismatch},
		{ErrOverLimit, CodeOverLimit},
		{ErrSignaturesExceeded, CodeSignaturesExceeded},
		{ErrCoinOutOfBounds, CodeCoinOutOfBounds},
		{ErrChangeNotCovered, CodeChangeNotCovered},
		{ErrChangeApplied, CodeChangeApplied},
		{ErrBuilderFinalized, CodeFinalized},
		{errors.New("other"), CodeInvalid},
	}
	for _, tt := range tests {
		if got := CodeOf(tt.err); got != tt.want {
			t.Errorf("CodeOf(%v) = %s, want %s", tt.err, got, tt.want)
		}
	}

	// The first seven values are a fixed numeric contract.
	fixed := []Code{CodeSuccess, CodeNoOutputs, CodeNoInputs, CodeSignatureMismatch,
		CodeOverLimit, CodeSignaturesExceeded, CodeCoinOutOfBounds}
	for i, c := range fixed {
		if int(c) != i {
			t.Errorf("%s = %d, want %d", c, int(c), i)
		}
	}
}
