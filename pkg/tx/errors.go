package tx

import (
	"errors"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/fee"
)

// Construction and witness errors.
var (
	ErrNoInputs           = errors.New("transaction has no inputs")
	ErrNoOutputs          = errors.New("transaction has no outputs")
	ErrSignatureMismatch  = errors.New("witness count does not match input count")
	ErrOverLimit          = errors.New("transaction exceeds maximum size")
	ErrSignaturesExceeded = errors.New("more witnesses than inputs")
	ErrChangeNotCovered   = errors.New("leftover does not cover the fee of a change output")
	ErrChangeApplied      = errors.New("change output already added")
	ErrBuilderFinalized   = errors.New("builder already finalized")
	ErrConsumed           = errors.New("signed transaction already produced")
	ErrIndexOutOfRange    = errors.New("index out of range")
)

// ErrCoinOutOfBounds is coin.ErrOutOfBounds, re-exported so callers of
// this package can match it without importing coin.
var ErrCoinOutOfBounds = coin.ErrOutOfBounds

// Code is the stable numeric result of a builder or finalizer operation,
// for callers across a C-style boundary.
type Code int

// Codes 0 through 6 are fixed; later codes are appended only.
const (
	CodeSuccess            Code = 0
	CodeNoOutputs          Code = 1
	CodeNoInputs           Code = 2
	CodeSignatureMismatch  Code = 3
	CodeOverLimit          Code = 4
	CodeSignaturesExceeded Code = 5
	CodeCoinOutOfBounds    Code = 6
	CodeChangeNotCovered   Code = 7
	CodeChangeApplied      Code = 8
	CodeFinalized          Code = 9
	CodeInvalid            Code = 10
)

var codeErrors = []struct {
	err  error
	code Code
}{
	{ErrNoOutputs, CodeNoOutputs},
	{ErrNoInputs, CodeNoInputs},
	{ErrSignatureMismatch, CodeSignatureMismatch},
	{ErrOverLimit, CodeOverLimit},
	{ErrSignaturesExceeded, CodeSignaturesExceeded},
	{coin.ErrOutOfBounds, CodeCoinOutOfBounds},
	{fee.ErrOverflow, CodeCoinOutOfBounds},
	{ErrChangeNotCovered, CodeChangeNotCovered},
	{ErrChangeApplied, CodeChangeApplied},
	{ErrBuilderFinalized, CodeFinalized},
	{ErrConsumed, CodeFinalized},
	{crypto.ErrInvalidKey, CodeInvalid},
}

// CodeOf maps an error returned by this package to its Code.
// nil maps to CodeSuccess; unknown errors map to CodeInvalid.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			return ce.code
		}
	}
	return CodeInvalid
}

// String returns the symbolic name of the code.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeNoOutputs:
		return "no_outputs"
	case CodeNoInputs:
		return "no_inputs"
	case CodeSignatureMismatch:
		return "signature_mismatch"
	case CodeOverLimit:
		return "over_limit"
	case CodeSignaturesExceeded:
		return "signatures_exceeded"
	case CodeCoinOutOfBounds:
		return "coin_out_of_bounds"
	case CodeChangeNotCovered:
		return "change_not_covered"
	case CodeChangeApplied:
		return "change_applied"
	case CodeFinalized:
		return "finalized"
	default:
		return "invalid"
	}
}
