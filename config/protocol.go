package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/fee"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// =============================================================================
// Protocol parameters (fixed per network)
// These must match what the network accepts or transactions are rejected.
// =============================================================================

// Protocol holds the parameters transactions are built and signed under.
type Protocol struct {
	Name           string        `json:"name"`
	Magic          uint32        `json:"protocol_magic"`
	AddressVersion byte          `json:"address_version"`
	MaxCoin        uint64        `json:"max_coin"`
	Fee            fee.LinearFee `json:"fee"`
	MaxTxSize      int           `json:"max_tx_size"`
}

// MainnetProtocol returns the mainnet parameters.
func MainnetProtocol() *Protocol {
	return &Protocol{
		Name:           "mainnet",
		Magic:          uint32(types.MainnetMagic),
		AddressVersion: types.MainnetAddressVersion,
		MaxCoin:        uint64(coin.MaxCoin),
		Fee:            fee.DefaultLinearFee(),
		MaxTxSize:      tx.DefaultMaxTxSize,
	}
}

// TestnetProtocol returns the testnet parameters. Only the magic and the
// address version differ from mainnet.
func TestnetProtocol() *Protocol {
	p := MainnetProtocol()
	p.Name = "testnet"
	p.Magic = uint32(types.TestnetMagic)
	p.AddressVersion = types.TestnetAddressVersion
	return p
}

// ProtocolFor returns the parameters for the given network.
func ProtocolFor(network NetworkType) *Protocol {
	switch network {
	case Testnet:
		return TestnetProtocol()
	default:
		return MainnetProtocol()
	}
}

// ProtocolMagic returns the magic witnesses are signed under.
func (p *Protocol) ProtocolMagic() types.ProtocolMagic {
	return types.ProtocolMagic(p.Magic)
}

// TxParams returns the builder and finalizer parameters.
func (p *Protocol) TxParams() tx.Params {
	return tx.Params{
		Fee:       p.Fee,
		Limit:     coin.Limit{Max: coin.Coin(p.MaxCoin)},
		MaxTxSize: p.MaxTxSize,
	}
}

// ApplyFee overrides the fee schedule with the non-empty fields of fc.
func (p *Protocol) ApplyFee(fc FeeConfig) error {
	if fc.Constant != "" {
		v, err := fee.ParseMilli(fc.Constant)
		if err != nil {
			return fmt.Errorf("fee.constant: %w", err)
		}
		p.Fee.Constant = v
	}
	if fc.Coefficient != "" {
		v, err := fee.ParseMilli(fc.Coefficient)
		if err != nil {
			return fmt.Errorf("fee.coefficient: %w", err)
		}
		p.Fee.Coefficient = v
	}
	return nil
}

// LoadProtocol loads protocol parameters from a JSON file.
func LoadProtocol(path string) (*Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading protocol file: %w", err)
	}

	var p Protocol
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing protocol file: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid protocol: %w", err)
	}

	return &p, nil
}

// Save writes the protocol parameters to a file.
func (p *Protocol) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding protocol: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing protocol file: %w", err)
	}

	return nil
}

// Validate checks that the parameters are usable.
func (p *Protocol) Validate() error {
	if p.Magic == 0 {
		return fmt.Errorf("protocol_magic is required")
	}
	if p.MaxCoin == 0 {
		return fmt.Errorf("max_coin must be positive")
	}
	if p.MaxCoin > uint64(coin.MaxCoin) {
		return fmt.Errorf("max_coin %d exceeds %d", p.MaxCoin, uint64(coin.MaxCoin))
	}
	if p.MaxTxSize < 0 {
		return fmt.Errorf("max_tx_size must not be negative")
	}
	// The fee of the largest transaction must be a valid coin value.
	if _, err := p.Fee.EstimateFee(p.MaxTxSize); err != nil {
		return fmt.Errorf("fee at max_tx_size: %w", err)
	}
	return nil
}

// Hash returns a BLAKE3 hash of the parameters, used to tell apart
// protocols that share a name.
func (p *Protocol) Hash() (types.Hash, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.Hash(data), nil
}
