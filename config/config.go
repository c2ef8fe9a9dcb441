// Package config handles application configuration.
//
// Configuration is split into two categories:
//   - Protocol parameters: fixed per network (magic, coin limit, fee schedule,
//     size limit), overridable only for private networks
//   - Tool settings: data directory, wallet account, input selection, logging
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// NetworkType identifies mainnet or testnet.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
)

// Config holds the tool's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `conf:"network"`
	DataDir string      `conf:"datadir"`

	// ProtocolFile replaces the built-in protocol parameters with a JSON file.
	ProtocolFile string `conf:"protocol"`

	// Fee schedule overrides
	Fee FeeConfig

	// Wallet
	Wallet WalletConfig

	// Logging
	Log LogConfig
}

// FeeConfig overrides the network's linear fee. Empty fields keep the
// network default.
type FeeConfig struct {
	Constant    string `conf:"fee.constant"`
	Coefficient string `conf:"fee.coefficient"`
}

// Input selection strategies.
const (
	SelectLargestFirst = "largest-first"
	SelectHeadFirst    = "head-first"
	SelectBlackjack    = "blackjack"
)

// WalletConfig holds key derivation and input selection settings.
type WalletConfig struct {
	Account   uint32 `conf:"wallet.account"`
	Lookahead uint32 `conf:"wallet.lookahead"` // addresses derived per chain
	Selection string `conf:"wallet.selection"`
	Dust      uint64 `conf:"wallet.dust"` // blackjack dust threshold
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.klingnet-tx
//	macOS:   ~/Library/Application Support/KlingnetTx
//	Windows: %APPDATA%\KlingnetTx
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".klingnet-tx"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "KlingnetTx")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "KlingnetTx")
		}
		return filepath.Join(home, "AppData", "Roaming", "KlingnetTx")
	default:
		return filepath.Join(home, ".klingnet-tx")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// StagingDir returns the staging database directory.
func (c *Config) StagingDir() string {
	return filepath.Join(c.NetworkDataDir(), "staging")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "klingnet-tx.conf")
}
