package utxo

import (
	"testing"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

func TestCommitment_Empty(t *testing.T) {
	s := testStore(t)
	root, err := Commitment(s)
	if err != nil {
		t.Fatalf("Commitment() error: %v", err)
	}
	if !root.IsZero() {
		t.Errorf("empty set should have zero commitment, got %s", root)
	}
}

func TestCommitment_SingleUTXO(t *testing.T) {
	s := testStore(t)
	u := makeUTXO("tx1", 0, 5000)
	s.Put(u)

	root, err := Commitment(s)
	if err != nil {
		t.Fatalf("Commitment() error: %v", err)
	}
	if want := hashUTXO(&u); root != want {
		t.Errorf("single utxo commitment = %s, want %s", root, want)
	}
}

func TestCommitment_ChangesOnModification(t *testing.T) {
	s := testStore(t)
	s.Put(makeUTXO("tx1", 0, 5000))
	before, _ := Commitment(s)

	s.Put(makeUTXO("tx2", 0, 1))
	after, _ := Commitment(s)
	if before == after {
		t.Error("commitment should change when a utxo is added")
	}

	s.Delete(makeOutpoint("tx2", 0))
	restored, _ := Commitment(s)
	if restored != before {
		t.Error("commitment should return to the earlier value after delete")
	}
}

func TestCommitment_OrderIndependent(t *testing.T) {
	a, b := testStore(t), testStore(t)
	utxos := []struct {
		data  string
		index uint32
	}{{"tx1", 0}, {"tx2", 1}, {"tx3", 2}}

	for i, u := range utxos {
		a.Put(makeUTXO(u.data, u.index, 100))
		r := utxos[len(utxos)-1-i]
		b.Put(makeUTXO(r.data, r.index, 100))
	}
	ra, _ := Commitment(a)
	rb, _ := Commitment(b)
	if ra != rb {
		t.Errorf("insertion order changed the commitment: %s vs %s", ra, rb)
	}
}

func TestHashUTXO_DifferentValues(t *testing.T) {
	u1 := makeUTXO("tx1", 0, 100)
	u2 := makeUTXO("tx1", 0, 200)
	if hashUTXO(&u1) == hashUTXO(&u2) {
		t.Error("different values should hash differently")
	}
	u3 := makeUTXO("tx1", 0, 100)
	u3.Address = addrB
	if hashUTXO(&u1) == hashUTXO(&u3) {
		t.Error("different addresses should hash differently")
	}
}

func TestMerkleRoot(t *testing.T) {
	h1 := crypto.Hash([]byte("tx1"))
	h2 := crypto.Hash([]byte("tx2"))
	h3 := crypto.Hash([]byte("tx3"))

	if got := merkleRoot([]types.Hash{h1}); got != h1 {
		t.Errorf("single hash should return itself")
	}
	if got, want := merkleRoot([]types.Hash{h1, h2}), crypto.HashParts(h1[:], h2[:]); got != want {
		t.Errorf("two hashes: got %s, want %s", got, want)
	}

	// With 3 hashes: h3 is duplicated -> [h1, h2, h3, h3]
	left := crypto.HashParts(h1[:], h2[:])
	right := crypto.HashParts(h3[:], h3[:])
	want := crypto.HashParts(left[:], right[:])
	in := []types.Hash{h1, h2, h3}
	if got := merkleRoot(in); got != want {
		t.Errorf("three hashes: got %s, want %s", got, want)
	}
	if len(in) != 3 {
		t.Error("merkleRoot mutated its input")
	}
}
