package wallet

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/internal/log"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Strategy creates a selector over the spendable UTXOs.
type Strategy func(utxos []UTXO) Selector

// Built-in strategies.
var (
	StrategyHeadFirst    Strategy = func(u []UTXO) Selector { return NewHeadFirst(u) }
	StrategyLargestFirst Strategy = func(u []UTXO) Selector { return NewLargestFirst(u) }
)

// StrategyBlackjack returns a blackjack strategy with the given dust threshold.
func StrategyBlackjack(dust coin.Coin) Strategy {
	return func(u []UTXO) Selector { return NewBlackjack(dust, u) }
}

// Spender builds, signs and checks payments from a keyring's UTXOs.
type Spender struct {
	Params   tx.Params
	Magic    types.ProtocolMagic
	Keys     *Keyring
	Strategy Strategy // defaults to LargestFirst
}

// Payment is the result of Send.
type Payment struct {
	Tx        *tx.SignedTransaction
	Selection *Selection
}

// Send pays the given outputs from utxos, returning change to
// changeAddr. Every selected UTXO must belong to the keyring.
func (s *Spender) Send(utxos []UTXO, payments []tx.Output, changeAddr types.Address) (*Payment, error) {
	logger := log.Wallet
	defer log.Benchmark(logger, "send")()

	if len(utxos) == 0 {
		return nil, ErrNoUTXOs
	}
	owners := make(map[types.Outpoint]types.Address, len(utxos))
	for _, u := range utxos {
		owners[u.Outpoint] = u.Address
	}

	strategy := s.Strategy
	if strategy == nil {
		strategy = StrategyLargestFirst
	}
	sel, err := Compute(s.Params, strategy(utxos), payments, changeAddr)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Int("inputs", len(sel.Inputs)).
		Stringer("fee", sel.Fee).
		Stringer("loss", sel.Loss).
		Bool("change", sel.Change != nil).
		Msg("Inputs selected")

	unsigned, err := sel.Builder().Finalize()
	if err != nil {
		return nil, err
	}
	if err := unsigned.Validate(); err != nil {
		return nil, err
	}

	fin := tx.NewFinalized(unsigned, s.Params)
	txid := fin.TxID()
	for i, u := range sel.Inputs {
		signer, err := s.Keys.Signer(u.Address)
		if err != nil {
			return nil, fmt.Errorf("input %d (%s): %w", i, u.Outpoint, err)
		}
		w, err := tx.SignWitness(signer, s.Magic, txid)
		signer.Zero()
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		if err := fin.AddInWitness(w); err != nil {
			return nil, err
		}
	}

	signed, err := fin.Output()
	if err != nil {
		return nil, err
	}
	resolver := tx.OwnerFunc(func(op types.Outpoint) (types.Address, error) {
		addr, ok := owners[op]
		if !ok {
			return types.Address{}, fmt.Errorf("outpoint %s not offered", op)
		}
		return addr, nil
	})
	if err := signed.VerifyOwners(resolver); err != nil {
		return nil, err
	}
	if err := signed.VerifyWitnesses(s.Magic); err != nil {
		return nil, err
	}

	logger.Info().
		Stringer("txid", signed.ID()).
		Int("size", signed.Size()).
		Stringer("fee", sel.Fee).
		Msg("Payment signed")
	return &Payment{Tx: signed, Selection: sel}, nil
}
