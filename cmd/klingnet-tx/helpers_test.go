package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Klingon-tech/klingnet-txbuilder/config"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/staging"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/storage"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/utxo"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/wallet"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{tx.ErrNoOutputs, 1},
		{tx.ErrNoInputs, 2},
		{fmt.Errorf("output: %w", tx.ErrSignatureMismatch), 3},
		{tx.ErrOverLimit, 4},
		{tx.ErrSignaturesExceeded, 5},
		{coin.ErrOutOfBounds, 6},
		{tx.ErrChangeNotCovered, 7},
		{tx.ErrChangeApplied, 8},
		{staging.ErrUnknown, exitNoState},
		{fmt.Errorf("show: %w", staging.ErrNotSigned), exitNoState},
		{utxo.ErrNotFound, exitNoState},
		{fmt.Errorf("anything else"), int(tx.CodeInvalid)},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestDescribe(t *testing.T) {
	msg := describe(tx.ErrNoInputs)
	if !strings.Contains(msg, tx.ErrNoInputs.Error()) {
		t.Errorf("msg = %q, want it to contain %q", msg, tx.ErrNoInputs.Error())
	}
	if !strings.Contains(msg, "add-input") {
		t.Errorf("msg = %q, want it to contain %q", msg, "add-input")
	}

	plain := fmt.Errorf("read utxos: boom")
	if describe(plain) != plain.Error() {
		t.Errorf("describe(plain) = %v, want %v", describe(plain), plain.Error())
	}

	unknown := &unknownKeyError{input: 2, err: wallet.ErrUnknownAddress}
	if !errors.Is(unknown, wallet.ErrUnknownAddress) {
		t.Errorf("unknownKeyError should wrap ErrUnknownAddress")
	}
	if !strings.Contains(describe(unknown), "lookahead") {
		t.Errorf("describe(unknown) = %q, want it to contain %q", describe(unknown), "lookahead")
	}
	if !strings.Contains(describe(unknown), "input 2") {
		t.Errorf("describe(unknown) = %q, want it to contain %q", describe(unknown), "input 2")
	}
}

func TestHint_AllCodes(t *testing.T) {
	for c := tx.CodeNoOutputs; c < tx.CodeInvalid; c++ {
		if hint(c) == "" {
			t.Errorf("no hint for %s", c)
		}
	}
	if h := hint(tx.CodeSuccess); h != "" {
		t.Errorf("hint(Success) = %q, want empty", h)
	}
	if h := hint(tx.CodeInvalid); h != "" {
		t.Errorf("hint(Invalid) = %q, want empty", h)
	}
}

func TestParseIndex(t *testing.T) {
	n, err := parseIndex(" 3 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %v, want %v", n, 3)
	}

	for _, bad := range []string{"", "-1", "x"} {
		if _, err := parseIndex(bad); err == nil {
			t.Errorf("parseIndex(%q) should fail", bad)
		}
	}
}

func TestSignedBalance(t *testing.T) {
	tests := []struct {
		a, b coin.Coin
		want string
	}{
		{2_000_000, 500_000, "1.500000"},
		{5, 15, "-0.000010"},
		{7, 7, "0.000000"},
	}
	for _, tt := range tests {
		if got := signedBalance(coin.Differential(tt.a, tt.b)); got != tt.want {
			t.Errorf("signedBalance(%d - %d) = %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestStrategyFor(t *testing.T) {
	utxos := []wallet.UTXO{{Value: 1}, {Value: 3}}

	s, err := strategyFor(config.WalletConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s(utxos); !isType[*wallet.LargestFirst](got) {
		t.Errorf("selector = %T, want *wallet.LargestFirst", got)
	}

	s, err = strategyFor(config.WalletConfig{Selection: config.SelectHeadFirst})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s(utxos); !isType[*wallet.HeadFirst](got) {
		t.Errorf("selector = %T, want *wallet.HeadFirst", got)
	}

	s, err = strategyFor(config.WalletConfig{Selection: config.SelectBlackjack, Dust: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := s(utxos); !isType[*wallet.Blackjack](got) {
		t.Errorf("selector = %T, want *wallet.Blackjack", got)
	}

	_, err = strategyFor(config.WalletConfig{Selection: config.SelectBlackjack, Dust: uint64(coin.MaxCoin) + 1})
	if !errors.Is(err, coin.ErrOutOfBounds) {
		t.Errorf("error = %v, want ErrOutOfBounds", err)
	}

	if _, err := strategyFor(config.WalletConfig{Selection: "random"}); err == nil {
		t.Error("unknown selection should fail")
	}
}

func isType[T any](v any) bool {
	_, ok := v.(T)
	return ok
}

func utxoJSON(t *testing.T, utxos []wallet.UTXO) []byte {
	t.Helper()
	data, err := json.Marshal(utxos)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return data
}

func TestParseUTXOs(t *testing.T) {
	addr := types.Address{1, 2, 3}
	a := types.Outpoint{TxID: types.Hash{0xaa}, Index: 0}
	b := types.Outpoint{TxID: types.Hash{0xaa}, Index: 1}

	got, err := parseUTXOs(utxoJSON(t, []wallet.UTXO{
		{Outpoint: a, Address: addr, Value: 5_000_000},
		{Outpoint: b, Address: addr, Value: 7},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want %d", len(got), 2)
	}
	if got[1].Outpoint != b {
		t.Errorf("got[1].Outpoint = %v, want %v", got[1].Outpoint, b)
	}
	if got[0].Address != addr {
		t.Errorf("got[0].Address = %v, want %v", got[0].Address, addr)
	}
	if got[1].Value != coin.Coin(7) {
		t.Errorf("got[1].Value = %v, want %v", got[1].Value, coin.Coin(7))
	}

	_, err = parseUTXOs(utxoJSON(t, []wallet.UTXO{{Outpoint: a, Address: addr, Value: 0}}))
	if err == nil || !strings.Contains(err.Error(), "zero value") {
		t.Errorf("error = %v, want it to contain \"zero value\"", err)
	}

	_, err = parseUTXOs(utxoJSON(t, []wallet.UTXO{
		{Outpoint: a, Address: addr, Value: 1},
		{Outpoint: a, Address: addr, Value: 2},
	}))
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("error = %v, want it to contain \"duplicate\"", err)
	}

	_, err = parseUTXOs(utxoJSON(t, []wallet.UTXO{{Outpoint: a, Address: addr, Value: coin.MaxCoin + 1}}))
	if !errors.Is(err, coin.ErrOutOfBounds) {
		t.Errorf("error = %v, want ErrOutOfBounds", err)
	}

	if _, err := parseUTXOs([]byte(`{"not":"a list"}`)); err == nil {
		t.Error("a JSON object should not parse as a utxo list")
	}
}

func TestEstimateSize_UpperBound(t *testing.T) {
	small := &tx.Transaction{
		Inputs:  []types.Outpoint{{TxID: types.Hash{1}, Index: 0}, {TxID: types.Hash{2}, Index: 9}},
		Outputs: []tx.Output{{Address: types.Address{3}, Value: 10}},
	}
	if estimateSize(2, 1) < tx.SignedSize(small, 2) {
		t.Errorf("estimateSize(2, 1) = %v, want >= %v", estimateSize(2, 1), tx.SignedSize(small, 2))
	}

	// Each extra input adds at most one outpoint and one witness.
	if d := estimateSize(3, 1) - estimateSize(2, 1); d != tx.MaxOutpointSize+tx.WitnessSize {
		t.Errorf("extra input adds %d bytes, want %d", d, tx.MaxOutpointSize+tx.WitnessSize)
	}
	if estimateSize(2, 2) <= estimateSize(2, 1) {
		t.Errorf("estimateSize(2, 2) = %v, want > %v", estimateSize(2, 2), estimateSize(2, 1))
	}
}

func TestArchive_AppliesUTXOsInSameBatch(t *testing.T) {
	db := storage.NewMemory()
	walletDB := storage.NewPrefixDB(db, walletNamespace)
	e := &env{
		store:    staging.NewStore(db, tx.DefaultParams()),
		utxos:    utxo.NewStore(walletDB),
		walletDB: walletDB,
	}
	mine := types.Address{0x11}
	owns := func(a types.Address) bool { return a == mine }

	funding := wallet.UTXO{Outpoint: types.Outpoint{TxID: types.Hash{0xf0}}, Address: mine, Value: 5_000_000}
	if err := e.utxos.Put(funding); err != nil {
		t.Fatalf("Put: %v", err)
	}

	spend := &tx.SignedTransaction{Tx: &tx.Transaction{
		Inputs: []types.Outpoint{funding.Outpoint},
		Outputs: []tx.Output{
			{Address: types.Address{0x22}, Value: 1_000_000},
			{Address: mine, Value: 3_000_000},
		},
	}}
	if err := e.archive(spend, nil, owns); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if _, err := e.store.Signed(spend.ID()); err != nil {
		t.Errorf("Signed: %v", err)
	}
	if ok, _ := e.utxos.Has(funding.Outpoint); ok {
		t.Error("spent utxo still tracked")
	}
	change := types.Outpoint{TxID: spend.ID(), Index: 1}
	if ok, _ := e.utxos.Has(change); !ok {
		t.Error("change utxo not tracked")
	}

	// A UTXO update that cannot be written leaves the archive untouched.
	bad := &tx.SignedTransaction{Tx: &tx.Transaction{
		Inputs:  []types.Outpoint{change},
		Outputs: []tx.Output{{Address: mine, Value: 0}},
	}}
	if err := e.archive(bad, nil, owns); !errors.Is(err, utxo.ErrZeroValue) {
		t.Fatalf("archive error = %v, want ErrZeroValue", err)
	}
	if _, err := e.store.Signed(bad.ID()); !errors.Is(err, staging.ErrNotSigned) {
		t.Errorf("Signed after failed archive: error = %v, want ErrNotSigned", err)
	}
	if ok, _ := e.utxos.Has(change); !ok {
		t.Error("change utxo removed by failed archive")
	}
}
