// Package tx builds, serializes and authorizes transactions: a Builder
// balances inputs against outputs and fee, a Finalized collects one
// witness per input, and the result is a SignedTransaction.
package tx

import (
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Input is an output being spent together with the value its owner
// claims for it. The value is trusted; only the outpoint is serialized.
type Input struct {
	PrevOut types.Outpoint `json:"prevout"`
	Value   coin.Coin      `json:"value"`
}

// Output pays Value to Address.
type Output struct {
	Address types.Address `json:"address"`
	Value   coin.Coin     `json:"value"`
}

// NewOutput creates an output, rejecting values above coin.MaxCoin.
func NewOutput(addr types.Address, value uint64) (Output, error) {
	c, err := coin.New(value)
	if err != nil {
		return Output{}, err
	}
	return Output{Address: addr, Value: c}, nil
}

// Transaction is an unsigned transaction: the outpoints it spends and the
// outputs it creates, in order.
type Transaction struct {
	Inputs  []types.Outpoint `json:"inputs"`
	Outputs []Output         `json:"outputs"`
}

// Bytes returns the canonical CBOR encoding.
func (tx *Transaction) Bytes() []byte {
	return mustMarshal(toWireTx(tx))
}

// Size returns the encoded size in bytes, without witnesses.
func (tx *Transaction) Size() int {
	return len(tx.Bytes())
}

// ID returns the transaction id: BLAKE3 over the unsigned encoding.
// Witnesses sign this id, so it never covers them.
func (tx *Transaction) ID() types.TxID {
	return crypto.Hash(tx.Bytes())
}

// TotalOutputValue returns the sum of all output values.
func (tx *Transaction) TotalOutputValue() (coin.Coin, error) {
	total := coin.Zero
	for _, out := range tx.Outputs {
		var err error
		if total, err = coin.Add(total, out.Value); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Clone returns a deep copy.
func (tx *Transaction) Clone() *Transaction {
	return &Transaction{
		Inputs:  append([]types.Outpoint(nil), tx.Inputs...),
		Outputs: append([]Output(nil), tx.Outputs...),
	}
}
