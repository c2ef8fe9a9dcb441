package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"
)

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	seed := testSeed(t)
	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
}

func TestSeedFromMnemonic_Passphrase(t *testing.T) {
	s1, err := SeedFromMnemonic(testMnemonic, "")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	s2, err := SeedFromMnemonic(testMnemonic, "my passphrase")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	if len(s1) != SeedSize {
		t.Errorf("seed length = %d, want %d", len(s1), SeedSize)
	}
	if bytes.Equal(s1, s2) {
		t.Error("different passphrases should produce different seeds")
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	for _, m := range []string{"", "not valid words here"} {
		if _, err := SeedFromMnemonic(m, ""); !errors.Is(err, ErrInvalidMnemonic) {
			t.Errorf("SeedFromMnemonic(%q) error = %v, want ErrInvalidMnemonic", m, err)
		}
	}
}
