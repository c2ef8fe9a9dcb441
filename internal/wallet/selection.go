package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/fee"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Input selection errors.
var (
	ErrNoUTXOs           = errors.New("no spendable outputs")
	ErrNoPayments        = errors.New("no payments given")
	ErrInsufficientFunds = errors.New("not enough funds to cover outputs and fees")
)

// UTXO is an unspent output the wallet can spend.
type UTXO struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Address  types.Address  `json:"address"`
	Value    coin.Coin      `json:"value"`
}

// Selector hands out candidate inputs one at a time. needed is the
// current estimate of outputs plus fee. A nil UTXO means the selector
// has nothing left to offer.
type Selector interface {
	Next(alg fee.Algorithm, needed coin.Coin) (*UTXO, error)
}

// HeadFirst offers UTXOs in the order given.
type HeadFirst struct {
	utxos []UTXO
}

// NewHeadFirst creates a selector over a copy of utxos.
func NewHeadFirst(utxos []UTXO) *HeadFirst {
	return &HeadFirst{utxos: append([]UTXO(nil), utxos...)}
}

// Next returns the first remaining UTXO.
func (h *HeadFirst) Next(fee.Algorithm, coin.Coin) (*UTXO, error) {
	if len(h.utxos) == 0 {
		return nil, nil
	}
	u := h.utxos[0]
	h.utxos = h.utxos[1:]
	return &u, nil
}

// LargestFirst offers UTXOs from the largest value down.
type LargestFirst struct {
	HeadFirst
}

// NewLargestFirst creates a selector over utxos sorted by value, largest
// first. Equal values keep their original order.
func NewLargestFirst(utxos []UTXO) *LargestFirst {
	sorted := append([]UTXO(nil), utxos...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Value > sorted[j].Value
	})
	return &LargestFirst{HeadFirst{utxos: sorted}}
}

// Blackjack picks pseudo-randomly among UTXOs that do not overshoot the
// target by more than dust plus the cost of spending them, so the
// leftover stays small. The pick sequence is deterministic for a given
// UTXO set and dust threshold.
type Blackjack struct {
	utxos    []UTXO
	used     []bool
	selected coin.Coin
	dust     coin.Coin
	state    uint32
}

// NewBlackjack creates a selector over a copy of utxos.
func NewBlackjack(dust coin.Coin, utxos []UTXO) *Blackjack {
	return &Blackjack{
		utxos: append([]UTXO(nil), utxos...),
		used:  make([]bool, len(utxos)),
		dust:  dust,
		state: uint32(uint64(len(utxos)) + uint64(dust)),
	}
}

func (b *Blackjack) random() uint32 {
	b.state = b.state*1103515245 + 12345
	return b.state
}

// Next returns a random unused UTXO worth at most the remaining target
// plus dust and the fee of one more input and witness.
func (b *Blackjack) Next(alg fee.Algorithm, needed coin.Coin) (*UTXO, error) {
	inputCost, err := alg.EstimateOverhead(tx.MaxOutpointSize)
	if err != nil {
		return nil, err
	}
	witnessCost, err := alg.EstimateOverhead(tx.WitnessSize)
	if err != nil {
		return nil, err
	}
	ceiling, err := coin.Sum(needed, inputCost, b.dust, witnessCost)
	if err != nil {
		return nil, err
	}
	if ceiling < b.selected {
		return nil, nil
	}
	maxValue := ceiling - b.selected

	var candidates []int
	for i, u := range b.utxos {
		if !b.used[i] && u.Value <= maxValue {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	i := candidates[b.random()%uint32(len(candidates))]
	total, err := coin.Add(b.selected, b.utxos[i].Value)
	if err != nil {
		return nil, err
	}
	b.used[i] = true
	b.selected = total
	u := b.utxos[i]
	return &u, nil
}

// Selection is the outcome of input selection.
type Selection struct {
	Inputs []UTXO
	// Fee is the transaction fee including any dust given up.
	Fee coin.Coin
	// Change is the change output, nil when none was added.
	Change *tx.Output
	// Loss is leftover too small to pay for its own change output. It is
	// included in Fee.
	Loss coin.Coin

	builder *tx.Builder
}

// Builder returns the builder holding the selected inputs, the payments
// and the change output.
func (s *Selection) Builder() *tx.Builder {
	return s.builder
}

// Compute draws inputs from sel until the payments and fee are covered,
// then sends the remainder to changeAddr. Leftover that cannot pay for a
// change output is left to the fee.
func Compute(params tx.Params, sel Selector, payments []tx.Output, changeAddr types.Address) (*Selection, error) {
	if len(payments) == 0 {
		return nil, ErrNoPayments
	}
	b := tx.NewBuilder(params)
	for _, out := range payments {
		if err := b.AddOutput(out); err != nil {
			return nil, err
		}
	}
	needed, err := estimateNeeded(b)
	if err != nil {
		return nil, err
	}

	var selected []UTXO
	for {
		u, err := sel.Next(params.Fee, needed)
		if err != nil {
			return nil, fmt.Errorf("select input: %w", err)
		}
		if u == nil {
			break
		}
		if err := b.AddInput(u.Outpoint, u.Value); err != nil {
			return nil, err
		}
		selected = append(selected, *u)

		if needed, err = estimateNeeded(b); err != nil {
			return nil, err
		}
		bal, err := b.Balance()
		if err != nil {
			return nil, err
		}
		if !bal.IsNegative() {
			break
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoUTXOs
	}

	bal, err := b.Balance()
	if err != nil {
		return nil, err
	}
	if bal.IsNegative() {
		return nil, fmt.Errorf("%w: short by %s", ErrInsufficientFunds, bal.Value)
	}

	s := &Selection{Inputs: selected, builder: b}
	change, err := b.AddChangeAddr(changeAddr)
	switch {
	case errors.Is(err, tx.ErrChangeNotCovered):
		s.Loss = bal.Value
	case err != nil:
		return nil, err
	}
	s.Change = change

	if s.Fee, err = b.Fee(); err != nil {
		return nil, err
	}
	// A residual at a width boundary also goes to the fee.
	final, err := b.Balance()
	if err != nil {
		return nil, err
	}
	if s.Change != nil {
		s.Loss = final.Value
	}
	if s.Fee, err = coin.Add(s.Fee, s.Loss); err != nil {
		return nil, err
	}
	return s, nil
}

func estimateNeeded(b *tx.Builder) (coin.Coin, error) {
	out, err := b.OutputTotal()
	if err != nil {
		return 0, err
	}
	f, err := b.Fee()
	if err != nil {
		return 0, err
	}
	return b.Params().Limit.Add(out, f)
}
