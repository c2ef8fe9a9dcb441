package types

import "strconv"

// ProtocolMagic separates networks: it is mixed into every witness digest
// so a signature made for one network never verifies on another.
type ProtocolMagic uint32

// Well-known network magics.
const (
	MainnetMagic ProtocolMagic = 764824073
	TestnetMagic ProtocolMagic = 1097911063
)

// String returns the decimal magic.
func (m ProtocolMagic) String() string {
	return strconv.FormatUint(uint64(m), 10)
}
