package tx

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Witness authorizes one input: a public key and its signature over the
// signing digest of the transaction id.
type Witness struct {
	PubKey    [crypto.PublicKeySize]byte
	Signature [crypto.SignatureSize]byte
}

// SigningDigest returns BLAKE3(CBOR([1, magic, txid])), the message every
// witness signs. Including the magic binds the witness to one network.
func SigningDigest(magic types.ProtocolMagic, txid types.TxID) types.Hash {
	return crypto.Hash(mustMarshal(wireSigningPayload{
		Tag:   signingTag,
		Magic: uint32(magic),
		TxID:  txid.Bytes(),
	}))
}

// NewWitness signs txid under magic with a raw 32-byte private key.
func NewWitness(key []byte, magic types.ProtocolMagic, txid types.TxID) (Witness, error) {
	pk, err := crypto.PrivateKeyFromBytes(key)
	if err != nil {
		return Witness{}, err
	}
	defer pk.Zero()
	return SignWitness(pk, magic, txid)
}

// SignWitness produces a witness using any Signer.
func SignWitness(s crypto.Signer, magic types.ProtocolMagic, txid types.TxID) (Witness, error) {
	var w Witness
	digest := SigningDigest(magic, txid)
	sig, err := s.Sign(digest[:])
	if err != nil {
		return w, fmt.Errorf("sign witness: %w", err)
	}
	pub := s.PublicKey()
	if len(pub) != crypto.PublicKeySize || len(sig) != crypto.SignatureSize {
		return w, fmt.Errorf("signer returned %d-byte key, %d-byte signature", len(pub), len(sig))
	}
	copy(w.PubKey[:], pub)
	copy(w.Signature[:], sig)
	return w, nil
}

// Verify reports whether the witness signs txid under magic.
func (w Witness) Verify(magic types.ProtocolMagic, txid types.TxID) bool {
	digest := SigningDigest(magic, txid)
	return crypto.VerifySignature(digest[:], w.Signature[:], w.PubKey[:])
}

// Address returns the address controlled by the witness key.
func (w Witness) Address() types.Address {
	return crypto.AddressFromPubKey(w.PubKey[:])
}

type witnessJSON struct {
	PubKey    string `json:"pubkey"`
	Signature string `json:"signature"`
}

// MarshalJSON encodes the key and signature as hex.
func (w Witness) MarshalJSON() ([]byte, error) {
	return json.Marshal(witnessJSON{
		PubKey:    hex.EncodeToString(w.PubKey[:]),
		Signature: hex.EncodeToString(w.Signature[:]),
	})
}

// UnmarshalJSON decodes hex key and signature fields.
func (w *Witness) UnmarshalJSON(data []byte) error {
	var j witnessJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	pub, err := hex.DecodeString(j.PubKey)
	if err != nil {
		return fmt.Errorf("witness pubkey: %w", err)
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return fmt.Errorf("witness signature: %w", err)
	}
	parsed, err := fromWireWitness(wireWitness{PubKey: pub, Signature: sig})
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
