package crypto

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestHash_KnownVectors(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
		{"hello", "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f"},
	}
	for _, tt := range tests {
		got := Hash([]byte(tt.input))
		if hex.EncodeToString(got[:]) != tt.want {
			t.Errorf("Hash(%q) = %x, want %s", tt.input, got, tt.want)
		}
	}
}

func TestHashParts_MatchesConcat(t *testing.T) {
	a, b := []byte("tx"), []byte("builder")
	if HashParts(a, b) != Hash([]byte("txbuilder")) {
		t.Error("HashParts should equal Hash of the concatenation")
	}
	if HashParts() != Hash(nil) {
		t.Error("HashParts() should equal Hash(nil)")
	}
}

func TestAddressFromPubKey(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	pub := key.PublicKey()
	addr := AddressFromPubKey(pub)
	h := Hash(pub)
	if !bytes.Equal(addr[:], h[:20]) {
		t.Error("address should be the first 20 bytes of BLAKE3(pubkey)")
	}
}

func TestPrivateKeyFromBytes(t *testing.T) {
	original, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	restored, err := PrivateKeyFromBytes(original.Serialize())
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes() error: %v", err)
	}
	if !bytes.Equal(original.PublicKey(), restored.PublicKey()) {
		t.Error("restored key should have same public key")
	}
}

func TestPrivateKeyFromBytes_Invalid(t *testing.T) {
	overflow := bytes.Repeat([]byte{0xff}, 32)
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"too short", make([]byte, 16)},
		{"too long", make([]byte, 64)},
		{"zero scalar", make([]byte, 32)},
		{"above group order", overflow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrivateKeyFromBytes(tt.data)
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("got %v, want ErrInvalidKey", err)
			}
		})
	}
}

func TestSign_Verify(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	digest := Hash([]byte("message"))
	sig, err := key.Sign(digest[:])
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Errorf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if len(key.PublicKey()) != PublicKeySize {
		t.Errorf("public key length = %d, want %d", len(key.PublicKey()), PublicKeySize)
	}
	if !VerifySignature(digest[:], sig, key.PublicKey()) {
		t.Error("signature should verify")
	}

	var v Verifier = SchnorrVerifier{}
	if !v.Verify(digest[:], sig, key.PublicKey()) {
		t.Error("SchnorrVerifier should verify valid signature")
	}

	other := Hash([]byte("other"))
	if VerifySignature(other[:], sig, key.PublicKey()) {
		t.Error("signature should not verify with wrong digest")
	}

	corrupted := append([]byte(nil), sig...)
	corrupted[0] ^= 0x01
	if VerifySignature(digest[:], corrupted, key.PublicKey()) {
		t.Error("corrupted signature should not verify")
	}
}

func TestSign_Deterministic(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	digest := Hash([]byte("deterministic"))
	sig1, _ := key.Sign(digest[:])
	sig2, _ := key.Sign(digest[:])
	if !bytes.Equal(sig1, sig2) {
		t.Error("same key and digest should give the same signature")
	}
}

func TestSign_InvalidDigest(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	if _, err := key.Sign([]byte("short")); err == nil {
		t.Error("Sign() should reject non-32-byte digest")
	}
}

func TestVerify_InvalidInputs(t *testing.T) {
	tests := []struct {
		name                string
		digest, sig, pubKey []byte
	}{
		{"nil digest", nil, make([]byte, 64), make([]byte, 33)},
		{"empty signature", make([]byte, 32), nil, make([]byte, 33)},
		{"empty public key", make([]byte, 32), make([]byte, 64), nil},
		{"garbage public key", make([]byte, 32), make([]byte, 64), []byte("bad")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifySignature(tt.digest, tt.sig, tt.pubKey) {
				t.Error("should return false for invalid inputs")
			}
		})
	}
}

func TestPrivateKey_Zero(t *testing.T) {
	key, err := GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey() error: %v", err)
	}
	key.Zero()
	if !bytes.Equal(key.Serialize(), make([]byte, 32)) {
		t.Error("Serialize() should return zeros after Zero()")
	}
}
