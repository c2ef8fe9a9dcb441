package tx

import (
	"errors"
	"fmt"
	"math"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
	"github.com/fxamacker/cbor/v2"
)

// Wire layout (CBOR, definite lengths, canonical integers):
//
//	outpoint = [txid: bstr .size 32, index: uint]
//	output   = [address: bstr .size 20, value: uint]
//	tx       = [[* outpoint], [* output], {}]
//	witness  = [pubkey: bstr .size 33, signature: bstr .size 64]
//	signed   = [tx, [* witness]]
//
// Witnesses have a fixed width, so the size of a signed transaction is
// known exactly before any key is touched.

// ErrMalformed is returned when decoding bytes that are not a valid encoding.
var ErrMalformed = errors.New("malformed transaction encoding")

// signingTag prefixes the witness digest payload.
const signingTag = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		NilContainers: cbor.NilContainerAsEmpty,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("tx: cbor encoder: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("tx: cbor decoder: %v", err))
	}
}

type wireOutpoint struct {
	_     struct{} `cbor:",toarray"`
	TxID  []byte
	Index uint32
}

type wireOutput struct {
	_       struct{} `cbor:",toarray"`
	Address []byte
	Value   uint64
}

type wireTx struct {
	_          struct{} `cbor:",toarray"`
	Inputs     []wireOutpoint
	Outputs    []wireOutput
	Attributes map[uint64]cbor.RawMessage
}

type wireWitness struct {
	_         struct{} `cbor:",toarray"`
	PubKey    []byte
	Signature []byte
}

type wireSigned struct {
	_         struct{} `cbor:",toarray"`
	Tx        wireTx
	Witnesses []wireWitness
}

type wireSigningPayload struct {
	_     struct{} `cbor:",toarray"`
	Tag   uint8
	Magic uint32
	TxID  []byte
}

// Encoded sizes used by fee estimates.
const (
	// WitnessSize is the encoded size of one witness.
	WitnessSize = 1 + 2 + crypto.PublicKeySize + 2 + crypto.SignatureSize
	// MaxOutpointSize is the encoded size of an outpoint with a 32-bit index.
	MaxOutpointSize = 1 + 2 + types.HashSize + 5
)

// uintClasses are the value ranges that share one CBOR head width.
var uintClasses = []struct{ lo, hi uint64 }{
	{0, 23},
	{24, math.MaxUint8},
	{math.MaxUint8 + 1, math.MaxUint16},
	{math.MaxUint16 + 1, math.MaxUint32},
	{math.MaxUint32 + 1, math.MaxUint64},
}

func mustMarshal(v any) []byte {
	b, err := encMode.Marshal(v)
	if err != nil {
		// Only fixed-shape wire structs are marshaled here.
		panic(fmt.Sprintf("tx: encode %T: %v", v, err))
	}
	return b
}

func toWireTx(tx *Transaction) wireTx {
	w := wireTx{
		Inputs:  make([]wireOutpoint, len(tx.Inputs)),
		Outputs: make([]wireOutput, len(tx.Outputs)),
	}
	for i, in := range tx.Inputs {
		w.Inputs[i] = wireOutpoint{TxID: in.TxID.Bytes(), Index: in.Index}
	}
	for i, out := range tx.Outputs {
		w.Outputs[i] = wireOutput{Address: out.Address.Bytes(), Value: out.Value.Uint64()}
	}
	return w
}

func fromWireTx(w wireTx, limit coin.Limit) (*Transaction, error) {
	if len(w.Attributes) != 0 {
		return nil, fmt.Errorf("%w: unexpected attributes", ErrMalformed)
	}
	tx := &Transaction{
		Inputs:  make([]types.Outpoint, len(w.Inputs)),
		Outputs: make([]Output, len(w.Outputs)),
	}
	for i, in := range w.Inputs {
		if len(in.TxID) != types.HashSize {
			return nil, fmt.Errorf("%w: input %d txid length %d", ErrMalformed, i, len(in.TxID))
		}
		copy(tx.Inputs[i].TxID[:], in.TxID)
		tx.Inputs[i].Index = in.Index
	}
	for i, out := range w.Outputs {
		if len(out.Address) != types.AddressSize {
			return nil, fmt.Errorf("%w: output %d address length %d", ErrMalformed, i, len(out.Address))
		}
		value, err := limit.New(out.Value)
		if err != nil {
			return nil, fmt.Errorf("output %d: %w", i, err)
		}
		copy(tx.Outputs[i].Address[:], out.Address)
		tx.Outputs[i].Value = value
	}
	return tx, nil
}

func toWireWitness(w Witness) wireWitness {
	return wireWitness{PubKey: w.PubKey[:], Signature: w.Signature[:]}
}

func fromWireWitness(w wireWitness) (Witness, error) {
	var out Witness
	if len(w.PubKey) != crypto.PublicKeySize || len(w.Signature) != crypto.SignatureSize {
		return out, fmt.Errorf("%w: witness key %d bytes, signature %d bytes",
			ErrMalformed, len(w.PubKey), len(w.Signature))
	}
	copy(out.PubKey[:], w.PubKey)
	copy(out.Signature[:], w.Signature)
	return out, nil
}

// DecodeTransaction parses an unsigned transaction. Output values are
// bounded by coin.MaxCoin; use DecodeTransactionLimit for a tighter bound.
func DecodeTransaction(data []byte) (*Transaction, error) {
	return DecodeTransactionLimit(data, coin.DefaultLimit)
}

// DecodeTransactionLimit parses an unsigned transaction, rejecting any
// output value above limit.
func DecodeTransactionLimit(data []byte, limit coin.Limit) (*Transaction, error) {
	var w wireTx
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromWireTx(w, limit)
}

// DecodeSignedTransaction parses a transaction together with its witnesses.
// Output values are bounded by coin.MaxCoin.
func DecodeSignedTransaction(data []byte) (*SignedTransaction, error) {
	return DecodeSignedTransactionLimit(data, coin.DefaultLimit)
}

// DecodeSignedTransactionLimit is DecodeSignedTransaction with output
// values bounded by limit.
func DecodeSignedTransactionLimit(data []byte, limit coin.Limit) (*SignedTransaction, error) {
	var w wireSigned
	if err := decMode.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	tx, err := fromWireTx(w.Tx, limit)
	if err != nil {
		return nil, err
	}
	st := &SignedTransaction{Tx: tx, Witnesses: make([]Witness, len(w.Witnesses))}
	for i, ww := range w.Witnesses {
		if st.Witnesses[i], err = fromWireWitness(ww); err != nil {
			return nil, fmt.Errorf("witness %d: %w", i, err)
		}
	}
	return st, nil
}

// SignedSize returns the exact encoded size of tx carrying n witnesses.
func SignedSize(tx *Transaction, n int) int {
	w := wireSigned{Tx: toWireTx(tx), Witnesses: make([]wireWitness, n)}
	placeholder := wireWitness{
		PubKey:    make([]byte, crypto.PublicKeySize),
		Signature: make([]byte, crypto.SignatureSize),
	}
	for i := range w.Witnesses {
		w.Witnesses[i] = placeholder
	}
	return len(mustMarshal(w))
}
