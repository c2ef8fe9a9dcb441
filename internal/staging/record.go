package staging

import (
	"errors"
	"fmt"
	"time"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
	"github.com/fxamacker/cbor/v2"
)

// ErrCorrupt is returned when a stored record cannot be decoded.
var ErrCorrupt = errors.New("corrupt staging record")

// OpKind identifies a recorded operation.
type OpKind uint8

// Recorded operations. Values are stored; do not renumber.
const (
	OpCreate OpKind = iota + 1
	OpAddInput
	OpAddOutput
	OpRemoveInput
	OpRemoveOutput
	OpAddChange
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpAddInput:
		return "add-input"
	case OpAddOutput:
		return "add-output"
	case OpRemoveInput:
		return "remove-input"
	case OpRemoveOutput:
		return "remove-output"
	case OpAddChange:
		return "add-change"
	default:
		return fmt.Sprintf("op(%d)", uint8(k))
	}
}

// Op is one entry of a staged transaction's history. Which fields are
// set depends on Kind.
type Op struct {
	Kind     OpKind
	Outpoint types.Outpoint // add-input, remove-input
	Address  types.Address  // add-input (owner), add-output, add-change
	Value    coin.Coin      // add-input, add-output
	Index    int            // remove-output
	Time     time.Time      // create
}

type record struct {
	Kind    OpKind `cbor:"1,keyasint"`
	TxID    []byte `cbor:"2,keyasint,omitempty"`
	Index   uint32 `cbor:"3,keyasint,omitempty"`
	Address []byte `cbor:"4,keyasint,omitempty"`
	Value   uint64 `cbor:"5,keyasint,omitempty"`
	Time    int64  `cbor:"6,keyasint,omitempty"`
}

var (
	recEnc cbor.EncMode
	recDec cbor.DecMode
)

func init() {
	var err error
	if recEnc, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic(fmt.Sprintf("staging: cbor encoder: %v", err))
	}
	recDec, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("staging: cbor decoder: %v", err))
	}
}

func encodeOp(op Op) ([]byte, error) {
	r := record{Kind: op.Kind}
	switch op.Kind {
	case OpCreate:
		r.Time = op.Time.UnixNano()
	case OpAddInput:
		r.TxID = op.Outpoint.TxID.Bytes()
		r.Index = op.Outpoint.Index
		r.Address = op.Address.Bytes()
		r.Value = uint64(op.Value)
	case OpRemoveInput:
		r.TxID = op.Outpoint.TxID.Bytes()
		r.Index = op.Outpoint.Index
	case OpAddOutput:
		r.Address = op.Address.Bytes()
		r.Value = uint64(op.Value)
	case OpRemoveOutput:
		if op.Index < 0 {
			return nil, fmt.Errorf("negative output index %d", op.Index)
		}
		r.Index = uint32(op.Index)
	case OpAddChange:
		r.Address = op.Address.Bytes()
	default:
		return nil, fmt.Errorf("unknown operation %s", op.Kind)
	}
	return recEnc.Marshal(r)
}

func decodeOp(data []byte) (Op, error) {
	var r record
	if err := recDec.Unmarshal(data, &r); err != nil {
		return Op{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	op := Op{Kind: r.Kind}

	needHash := r.Kind == OpAddInput || r.Kind == OpRemoveInput
	needAddr := r.Kind == OpAddInput || r.Kind == OpAddOutput || r.Kind == OpAddChange
	if needHash && len(r.TxID) != types.HashSize {
		return Op{}, fmt.Errorf("%w: %s txid of %d bytes", ErrCorrupt, r.Kind, len(r.TxID))
	}
	if needAddr && len(r.Address) != types.AddressSize {
		return Op{}, fmt.Errorf("%w: %s address of %d bytes", ErrCorrupt, r.Kind, len(r.Address))
	}
	copy(op.Outpoint.TxID[:], r.TxID)
	copy(op.Address[:], r.Address)

	switch r.Kind {
	case OpCreate:
		op.Time = time.Unix(0, r.Time)
	case OpAddInput, OpRemoveInput:
		op.Outpoint.Index = r.Index
	case OpRemoveOutput:
		op.Index = int(r.Index)
	case OpAddOutput, OpAddChange:
	default:
		return Op{}, fmt.Errorf("%w: unknown operation %d", ErrCorrupt, r.Kind)
	}
	if r.Kind == OpAddInput || r.Kind == OpAddOutput {
		v, err := coin.New(r.Value)
		if err != nil {
			return Op{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		op.Value = v
	}
	return op, nil
}
