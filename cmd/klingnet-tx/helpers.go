package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Klingon-tech/klingnet-txbuilder/config"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/staging"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/utxo"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/wallet"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Exit codes outside the builder's result codes.
const (
	exitUsage   = 64
	exitNoState = 65
)

// exitCode maps an error to the process exit status. Builder and
// finalizer errors exit with their result code.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, staging.ErrUnknown), errors.Is(err, staging.ErrNotSigned),
		errors.Is(err, utxo.ErrNotFound):
		return exitNoState
	}
	return int(tx.CodeOf(err))
}

// hint explains a result code in terms of what to do next.
func hint(code tx.Code) string {
	switch code {
	case tx.CodeNoOutputs:
		return "add at least one output with add-output"
	case tx.CodeNoInputs:
		return "add at least one input with add-input"
	case tx.CodeSignatureMismatch:
		return "every input needs exactly one witness"
	case tx.CodeOverLimit:
		return "the signed transaction is too large; spend fewer inputs"
	case tx.CodeSignaturesExceeded:
		return "more witnesses than inputs"
	case tx.CodeCoinOutOfBounds:
		return "an amount or total exceeds the coin limit"
	case tx.CodeChangeNotCovered:
		return "the leftover cannot pay for a change output and will go to the fee"
	case tx.CodeChangeApplied:
		return "remove the existing change output first"
	case tx.CodeFinalized:
		return "the transaction was already finalized"
	default:
		return ""
	}
}

// describe renders err for the terminal.
func describe(err error) string {
	msg := err.Error()
	var unknown *unknownKeyError
	switch {
	case errors.As(err, &unknown):
		return fmt.Sprintf("%s (increase wallet.lookahead or check the account)", msg)
	case errors.Is(err, wallet.ErrInvalidMnemonic):
		return msg + " (check the word list and order)"
	}
	if h := hint(tx.CodeOf(err)); h != "" {
		return fmt.Sprintf("%s (%s)", msg, h)
	}
	return msg
}

// unknownKeyError reports an input whose owner is outside the keyring.
type unknownKeyError struct {
	input int
	addr  types.Address
	err   error
}

func (e *unknownKeyError) Error() string {
	return fmt.Sprintf("input %d: no key for %s", e.input, e.addr)
}

func (e *unknownKeyError) Unwrap() error { return e.err }

func parseAmount(s string) (coin.Coin, error) {
	return coin.Parse(s)
}

func formatAmount(c coin.Coin) string {
	return c.Format()
}

func parseIndex(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return n, nil
}

// signedBalance formats a coin.Diff with its sign.
func signedBalance(d coin.Diff) string {
	if d.IsNegative() {
		return "-" + formatAmount(d.Value)
	}
	return formatAmount(d.Value)
}

// strategyFor returns the input selection strategy the wallet config names.
func strategyFor(wc config.WalletConfig) (wallet.Strategy, error) {
	switch wc.Selection {
	case config.SelectLargestFirst, "":
		return wallet.StrategyLargestFirst, nil
	case config.SelectHeadFirst:
		return wallet.StrategyHeadFirst, nil
	case config.SelectBlackjack:
		dust, err := coin.New(wc.Dust)
		if err != nil {
			return nil, fmt.Errorf("dust threshold: %w", err)
		}
		return wallet.StrategyBlackjack(dust), nil
	default:
		return nil, fmt.Errorf("unknown selection %q", wc.Selection)
	}
}

// parseUTXOs decodes a JSON array of spendable outputs.
func parseUTXOs(data []byte) ([]wallet.UTXO, error) {
	var utxos []wallet.UTXO
	if err := json.Unmarshal(data, &utxos); err != nil {
		return nil, fmt.Errorf("parse utxos: %w", err)
	}
	seen := make(map[types.Outpoint]bool, len(utxos))
	for i, u := range utxos {
		if u.Value == 0 {
			return nil, fmt.Errorf("utxo %d (%s): zero value", i, u.Outpoint)
		}
		if _, err := coin.New(uint64(u.Value)); err != nil {
			return nil, fmt.Errorf("utxo %d (%s): %w", i, u.Outpoint, err)
		}
		if seen[u.Outpoint] {
			return nil, fmt.Errorf("utxo %d: duplicate outpoint %s", i, u.Outpoint)
		}
		seen[u.Outpoint] = true
	}
	return utxos, nil
}

// estimateSize returns an upper bound on the signed size of a
// transaction with the given shape.
func estimateSize(inputs, outputs int) int {
	t := &tx.Transaction{
		Inputs:  make([]types.Outpoint, inputs),
		Outputs: make([]tx.Output, outputs),
	}
	for i := range t.Inputs {
		t.Inputs[i].Index = math.MaxUint32
	}
	for i := range t.Outputs {
		t.Outputs[i].Value = coin.MaxCoin
	}
	return tx.SignedSize(t, inputs)
}
