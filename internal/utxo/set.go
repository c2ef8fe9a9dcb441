// Package utxo tracks the outputs a wallet can spend.
package utxo

import (
	"github.com/Klingon-tech/klingnet-txbuilder/internal/wallet"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Set is the interface for UTXO storage.
type Set interface {
	Get(outpoint types.Outpoint) (*wallet.UTXO, error)
	Put(u wallet.UTXO) error
	Delete(outpoint types.Outpoint) error
	Has(outpoint types.Outpoint) (bool, error)
}
