package staging

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// ErrInvalidID is returned when parsing a malformed staging id.
var ErrInvalidID = errors.New("invalid staging id")

// ID names a staged transaction. It is four random bytes, shown in base58.
type ID [4]byte

// NewID returns a random id.
func NewID() (ID, error) {
	var id ID
	if _, err := rand.Read(id[:]); err != nil {
		return id, fmt.Errorf("generate staging id: %w", err)
	}
	return id, nil
}

// ParseID decodes a base58 staging id.
func ParseID(s string) (ID, error) {
	var id ID
	raw, err := base58.Decode(s)
	if err != nil {
		return id, fmt.Errorf("%w: %v", ErrInvalidID, err)
	}
	if len(raw) != len(id) {
		return id, fmt.Errorf("%w: %d bytes", ErrInvalidID, len(raw))
	}
	copy(id[:], raw)
	return id, nil
}

// String returns the base58 form.
func (id ID) String() string {
	return base58.Encode(id[:])
}

// Uint32 returns the id as a big-endian integer.
func (id ID) Uint32() uint32 {
	return binary.BigEndian.Uint32(id[:])
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	parsed, err := ParseID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
