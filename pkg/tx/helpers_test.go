package tx

import (
	"testing"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

func testOutpoint(n byte) types.Outpoint {
	return types.Outpoint{TxID: types.Hash{n, 0xaa}, Index: uint32(n)}
}

func testAddr(n byte) types.Address {
	return types.Address{n, 0xbb}
}

// testKey returns a fresh key and its address.
func testKey(t *testing.T) (*crypto.PrivateKey, types.Address) {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return key, crypto.AddressFromPubKey(key.PublicKey())
}

// simpleTx finalizes a builder with the given input count, one 1000-unit
// output and default params.
func simpleTx(t *testing.T, inputs int) *Transaction {
	t.Helper()
	b := NewBuilder(DefaultParams())
	for i := 0; i < inputs; i++ {
		if err := b.AddInput(testOutpoint(byte(i+1)), coin.Coin(1_000_000)); err != nil {
			t.Fatalf("AddInput: %v", err)
		}
	}
	if err := b.AddOutput(Output{Address: testAddr(9), Value: 1000}); err != nil {
		t.Fatalf("AddOutput: %v", err)
	}
	tx, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return tx
}
