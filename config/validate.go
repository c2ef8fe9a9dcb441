package config

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/fee"
)

// MaxAccount is the largest BIP-44 account index (hardened derivation).
const MaxAccount = 1<<31 - 1

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.Wallet.Account > MaxAccount {
		return fmt.Errorf("wallet.account must be in range [0, %d]", MaxAccount)
	}
	if cfg.Wallet.Lookahead == 0 {
		return fmt.Errorf("wallet.lookahead must be positive")
	}

	if cfg.Wallet.Selection == "" {
		cfg.Wallet.Selection = SelectLargestFirst
	}
	switch cfg.Wallet.Selection {
	case SelectLargestFirst, SelectHeadFirst, SelectBlackjack:
	default:
		return fmt.Errorf("wallet.selection must be %s, %s or %s",
			SelectLargestFirst, SelectHeadFirst, SelectBlackjack)
	}

	for key, v := range map[string]string{
		"fee.constant":    cfg.Fee.Constant,
		"fee.coefficient": cfg.Fee.Coefficient,
	} {
		if v == "" {
			continue
		}
		if _, err := fee.ParseMilli(v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error", "disabled", "off":
	default:
		return fmt.Errorf("log.level %q is not a level", cfg.Log.Level)
	}
	return nil
}
