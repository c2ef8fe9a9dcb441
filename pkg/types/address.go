package types

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// AddressSize is the length of an address in bytes.
const AddressSize = 20

// Address version bytes, the first byte of the encoded form.
const (
	MainnetAddressVersion byte = 0x2d
	TestnetAddressVersion byte = 0x6f
)

const (
	checksumSize       = 4
	encodedAddressSize = 1 + AddressSize + checksumSize
)

// Address errors.
var (
	ErrInvalidAddress  = errors.New("invalid address")
	ErrAddressChecksum = errors.New("address checksum mismatch")
	ErrAddressNetwork  = errors.New("address belongs to another network")
)

// activeVersion is the version byte used by String() and enforced by
// ParseAddress. Set once at startup via SetAddressVersion().
var activeVersion = MainnetAddressVersion

// SetAddressVersion sets the active address version (call once at startup).
func SetAddressVersion(v byte) {
	activeVersion = v
}

// GetAddressVersion returns the currently active address version.
func GetAddressVersion() byte {
	return activeVersion
}

// Address represents a 160-bit address (public key hash).
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the base58 form under the active network version.
func (a Address) String() string {
	return EncodeAddress(a, activeVersion)
}

// Hex returns the raw hex-encoded address.
func (a Address) Hex() string {
	return hex.EncodeToString(a[:])
}

// Bytes returns a copy of the address as a byte slice.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressSize)
	copy(b, a[:])
	return b
}

// MarshalJSON encodes the address as a base58 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a base58 or raw hex address.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// EncodeAddress returns base58(version | hash | checksum), where checksum is
// the first four bytes of BLAKE2b-256(version | hash).
func EncodeAddress(a Address, version byte) string {
	buf := make([]byte, 0, encodedAddressSize)
	buf = append(buf, version)
	buf = append(buf, a[:]...)
	sum := blake2b.Sum256(buf)
	buf = append(buf, sum[:checksumSize]...)
	return base58.Encode(buf)
}

// DecodeAddress parses a base58 address of any version.
func DecodeAddress(s string) (Address, byte, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, 0, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(raw) != encodedAddressSize {
		return Address{}, 0, fmt.Errorf("%w: decoded length %d, want %d", ErrInvalidAddress, len(raw), encodedAddressSize)
	}
	body := raw[:1+AddressSize]
	sum := blake2b.Sum256(body)
	for i := 0; i < checksumSize; i++ {
		if sum[i] != raw[1+AddressSize+i] {
			return Address{}, 0, ErrAddressChecksum
		}
	}
	var a Address
	copy(a[:], body[1:])
	return a, body[0], nil
}

// ParseAddress parses a user-supplied address. Accepts base58 under the
// active version, or raw 40-char hex for internal use.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty", ErrInvalidAddress)
	}
	if len(s) == 2*AddressSize {
		if a, err := HexToAddress(s); err == nil {
			return a, nil
		}
	}
	a, version, err := DecodeAddress(s)
	if err != nil {
		return Address{}, err
	}
	if version != activeVersion {
		return Address{}, fmt.Errorf("%w: version 0x%02x, want 0x%02x", ErrAddressNetwork, version, activeVersion)
	}
	return a, nil
}

// ValidateAddress reports whether s parses under the active network.
func ValidateAddress(s string) error {
	_, err := ParseAddress(s)
	return err
}

// HexToAddress converts a raw 40-character hex string to an Address.
func HexToAddress(s string) (Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(b) != AddressSize {
		return Address{}, fmt.Errorf("%w: must be %d bytes, got %d", ErrInvalidAddress, AddressSize, len(b))
	}
	var a Address
	copy(a[:], b)
	return a, nil
}
