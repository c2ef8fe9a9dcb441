package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrHelp is returned by ParseFlags when help was requested.
var ErrHelp = flag.ErrHelp

// Flags holds parsed global command-line flags.
type Flags struct {
	// Commands
	Help    bool
	Version bool

	// Core
	Network string
	Testnet bool
	DataDir string
	Config  string

	// Fee
	FeeConstant    string
	FeeCoefficient string

	// Wallet
	Account   int64
	Selection string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Remaining args: the command and its arguments
	Args []string

	// Explicitly-set flags (for zero-value overrides).
	SetAccount bool
	SetLogJSON bool
}

// ParseFlags parses global flags from args, stopping at the first
// non-flag argument (the command).
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{Account: -1}
	fs := flag.NewFlagSet("klingnet-tx", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	// Commands
	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")
	fs.BoolVar(&f.Version, "version", false, "Show version information")

	// Core
	fs.StringVar(&f.Network, "network", "", "Network type (mainnet or testnet)")
	fs.BoolVar(&f.Testnet, "testnet", false, "Use testnet (shorthand for --network=testnet)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	// Fee
	fs.StringVar(&f.FeeConstant, "fee-constant", "", "Override the fee constant")
	fs.StringVar(&f.FeeCoefficient, "fee-coefficient", "", "Override the per-byte fee coefficient")

	// Wallet
	fs.Int64Var(&f.Account, "account", -1, "Wallet account index")
	fs.StringVar(&f.Selection, "selection", "", "Input selection: largest-first, head-first or blackjack")

	// Logging
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrHelp
		}
		return nil, err
	}

	if f.Testnet {
		f.Network = string(Testnet)
	}
	f.SetAccount = isFlagSet(fs, "account")
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) error {
	// Core
	if f.Network != "" {
		cfg.Network = NetworkType(strings.ToLower(f.Network))
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	// Fee
	if f.FeeConstant != "" {
		cfg.Fee.Constant = f.FeeConstant
	}
	if f.FeeCoefficient != "" {
		cfg.Fee.Coefficient = f.FeeCoefficient
	}

	// Wallet
	if f.SetAccount {
		if f.Account < 0 || f.Account > MaxAccount {
			return fmt.Errorf("--account must be in range [0, %d]", MaxAccount)
		}
		cfg.Wallet.Account = uint32(f.Account)
	}
	if f.Selection != "" {
		cfg.Wallet.Selection = strings.ToLower(f.Selection)
	}

	// Logging
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
	return nil
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Auto-create data dirs + default config (idempotent)
// 3. Config file
// 4. Command-line flags
func Load(f *Flags) (*Config, error) {
	network := Mainnet
	if strings.ToLower(f.Network) == string(Testnet) {
		network = Testnet
	}

	// Start with defaults
	cfg := Default(network)
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}

	if err := EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("ensuring data dirs: %w", err)
	}

	configPath := f.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, fmt.Errorf("applying config file: %w", err)
	}

	// Flags have the highest precedence
	if err := ApplyFlags(cfg, f); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadProtocolFor returns the protocol parameters cfg selects: the
// network defaults or the protocol file, with fee overrides applied.
func LoadProtocolFor(cfg *Config) (*Protocol, error) {
	p := ProtocolFor(cfg.Network)
	if cfg.ProtocolFile != "" {
		loaded, err := LoadProtocol(cfg.ProtocolFile)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if err := p.ApplyFee(cfg.Fee); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid protocol: %w", err)
	}
	return p, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist. Safe to call on every start.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.NetworkDataDir(),
		cfg.StagingDir(),
		cfg.LogsDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath, cfg.Network); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}

	return nil
}
