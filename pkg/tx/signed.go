package tx

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Witness verification errors.
var (
	ErrInvalidWitness = errors.New("invalid witness")
	ErrOwnerMismatch  = errors.New("witness key does not own input")
	ErrOwnerUnknown   = errors.New("input owner unknown")
)

// SignedTransaction is a transaction with one witness per input, in
// input order.
type SignedTransaction struct {
	Tx        *Transaction `json:"tx"`
	Witnesses []Witness    `json:"witnesses"`
}

// Bytes returns the canonical CBOR encoding [tx, [witnesses]].
func (st *SignedTransaction) Bytes() []byte {
	w := wireSigned{Tx: toWireTx(st.Tx), Witnesses: make([]wireWitness, len(st.Witnesses))}
	for i, wit := range st.Witnesses {
		w.Witnesses[i] = toWireWitness(wit)
	}
	return mustMarshal(w)
}

// Size returns the encoded size in bytes.
func (st *SignedTransaction) Size() int {
	return len(st.Bytes())
}

// ID returns the id of the underlying transaction.
func (st *SignedTransaction) ID() types.TxID {
	return st.Tx.ID()
}

// VerifyWitnesses checks that there is exactly one witness per input and
// that each signs the transaction id under magic.
func (st *SignedTransaction) VerifyWitnesses(magic types.ProtocolMagic) error {
	if len(st.Witnesses) != len(st.Tx.Inputs) {
		return fmt.Errorf("%w: %d witnesses, %d inputs", ErrSignatureMismatch, len(st.Witnesses), len(st.Tx.Inputs))
	}
	txid := st.ID()
	for i, w := range st.Witnesses {
		if !w.Verify(magic, txid) {
			return fmt.Errorf("witness %d: %w", i, ErrInvalidWitness)
		}
	}
	return nil
}

// OwnerResolver reports which address owns an outpoint.
type OwnerResolver interface {
	Owner(op types.Outpoint) (types.Address, error)
}

// OwnerFunc adapts a function to OwnerResolver.
type OwnerFunc func(op types.Outpoint) (types.Address, error)

// Owner calls f.
func (f OwnerFunc) Owner(op types.Outpoint) (types.Address, error) {
	return f(op)
}

// VerifyOwners checks that witness i's key hashes to the address owning
// input i. Signatures are not checked; see VerifyWitnesses.
func (st *SignedTransaction) VerifyOwners(r OwnerResolver) error {
	if len(st.Witnesses) != len(st.Tx.Inputs) {
		return fmt.Errorf("%w: %d witnesses, %d inputs", ErrSignatureMismatch, len(st.Witnesses), len(st.Tx.Inputs))
	}
	for i, op := range st.Tx.Inputs {
		owner, err := r.Owner(op)
		if err != nil {
			return fmt.Errorf("input %d (%s): %w: %v", i, op, ErrOwnerUnknown, err)
		}
		if got := st.Witnesses[i].Address(); got != owner {
			return fmt.Errorf("input %d: %w: expected %s, got %s", i, ErrOwnerMismatch, owner, got)
		}
	}
	return nil
}
