package tx

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Finalized collects witnesses for a frozen transaction. Witness i
// authorizes input i, so witnesses must be added in input order.
type Finalized struct {
	tx        *Transaction
	params    Params
	witnesses []Witness
	consumed  bool
}

// NewFinalized starts witness collection for tx. The transaction is
// copied; later changes to tx have no effect.
func NewFinalized(tx *Transaction, params Params) *Finalized {
	return &Finalized{tx: tx.Clone(), params: params}
}

// Transaction returns a copy of the transaction being witnessed.
func (f *Finalized) Transaction() *Transaction {
	return f.tx.Clone()
}

// TxID returns the id witnesses must sign.
func (f *Finalized) TxID() types.TxID {
	return f.tx.ID()
}

// Remaining returns how many witnesses are still missing.
func (f *Finalized) Remaining() int {
	return len(f.tx.Inputs) - len(f.witnesses)
}

// AddWitness signs txid under magic with a raw 32-byte private key and
// appends the witness for the next input. The txid is signed as given;
// a witness over the wrong id is only caught by verification.
func (f *Finalized) AddWitness(key []byte, magic types.ProtocolMagic, txid types.TxID) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	w, err := NewWitness(key, magic, txid)
	if err != nil {
		return fmt.Errorf("witness %d: %w", len(f.witnesses), err)
	}
	f.witnesses = append(f.witnesses, w)
	return nil
}

// AddInWitness appends a witness produced elsewhere, such as by an
// external signer.
func (f *Finalized) AddInWitness(w Witness) error {
	if err := f.checkOpen(); err != nil {
		return err
	}
	f.witnesses = append(f.witnesses, w)
	return nil
}

func (f *Finalized) checkOpen() error {
	if f.consumed {
		return ErrConsumed
	}
	if len(f.witnesses) >= len(f.tx.Inputs) {
		return fmt.Errorf("%w: transaction has %d inputs", ErrSignaturesExceeded, len(f.tx.Inputs))
	}
	return nil
}

// Output produces the signed transaction. It requires exactly one witness
// per input and an encoded size within the limit. On success the
// collector is consumed; on failure it is left unchanged.
func (f *Finalized) Output() (*SignedTransaction, error) {
	if f.consumed {
		return nil, ErrConsumed
	}
	if len(f.witnesses) != len(f.tx.Inputs) {
		return nil, fmt.Errorf("%w: %d witnesses, %d inputs", ErrSignatureMismatch, len(f.witnesses), len(f.tx.Inputs))
	}
	st := &SignedTransaction{
		Tx:        f.tx.Clone(),
		Witnesses: append([]Witness(nil), f.witnesses...),
	}
	if size := st.Size(); f.params.MaxTxSize > 0 && size > f.params.MaxTxSize {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrOverLimit, size, f.params.MaxTxSize)
	}
	f.consumed = true
	return st, nil
}
