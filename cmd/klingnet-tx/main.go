// klingnet-tx stages, signs and archives transactions offline.
package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/Klingon-tech/klingnet-txbuilder/config"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/log"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/staging"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/storage"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/utxo"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/wallet"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
	"golang.org/x/term"
)

const version = "0.3.0"

// env is what every command runs against.
type env struct {
	cfg   *config.Config
	proto *config.Protocol
	store *staging.Store
	utxos *utxo.Store
	// walletDB is the namespace under utxos, kept to share batches with store.
	walletDB *storage.PrefixDB
}

// Wallet UTXOs share the staging database under their own namespace.
var walletNamespace = []byte("wal/")

func main() {
	flags, err := config.ParseFlags(os.Args[1:])
	if errors.Is(err, config.ErrHelp) {
		usage()
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		usage()
		os.Exit(exitUsage)
	}
	if flags.Version {
		fmt.Printf("klingnet-tx %s\n", version)
		return
	}
	if flags.Help || len(flags.Args) == 0 {
		usage()
		if len(flags.Args) == 0 && !flags.Help {
			os.Exit(exitUsage)
		}
		return
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fatal("%v", err)
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		fatal("init logging: %v", err)
	}
	proto, err := config.LoadProtocolFor(cfg)
	if err != nil {
		fatal("%v", err)
	}
	types.SetAddressVersion(proto.AddressVersion)

	cmd := flags.Args[0]
	cmdArgs := flags.Args[1:]

	// Commands that need no staging store.
	switch cmd {
	case "fee":
		cmdFee(proto, cmdArgs)
		return
	case "mnemonic":
		cmdMnemonic(cmdArgs)
		return
	case "address":
		cmdAddress(cfg, cmdArgs)
		return
	case "help":
		usage()
		return
	}

	db, err := storage.NewBadger(cfg.StagingDir())
	if err != nil {
		fatal("open staging store: %v", err)
	}
	walletDB := storage.NewPrefixDB(db, walletNamespace)
	e := &env{
		cfg:      cfg,
		proto:    proto,
		store:    staging.NewStore(db, proto.TxParams()),
		utxos:    utxo.NewStore(walletDB),
		walletDB: walletDB,
	}
	log.CLI.Debug().
		Str("network", string(cfg.Network)).
		Str("protocol", proto.Name).
		Str("command", cmd).
		Msg("Starting")

	code := e.run(cmd, cmdArgs)
	if err := db.Close(); err != nil {
		log.CLI.Warn().Err(err).Msg("Closing staging store")
	}
	os.Exit(code)
}

// run dispatches cmd and returns the exit code.
func (e *env) run(cmd string, args []string) int {
	var err error
	switch cmd {
	case "new":
		err = e.cmdNew()
	case "list":
		err = e.cmdList()
	case "status":
		err = e.cmdStatus(args)
	case "add-input":
		err = e.cmdAddInput(args)
	case "add-output":
		err = e.cmdAddOutput(args)
	case "add-change":
		err = e.cmdAddChange(args)
	case "remove-input":
		err = e.cmdRemoveInput(args)
	case "remove-output":
		err = e.cmdRemoveOutput(args)
	case "sign":
		err = e.cmdSign(args)
	case "export":
		err = e.cmdExport(args)
	case "import":
		err = e.cmdImport(args)
	case "destroy":
		err = e.cmdDestroy(args)
	case "show":
		err = e.cmdShow(args)
	case "signed":
		err = e.cmdSigned()
	case "send":
		err = e.cmdSend(args)
	case "utxo":
		err = e.cmdUTXO(args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		usage()
		return exitUsage
	}
	if err == nil {
		return 0
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(os.Stderr, "Usage: klingnet-tx %s\n", string(ue))
		return exitUsage
	}
	log.CLI.Debug().Err(err).Str("command", cmd).Msg("Command failed")
	fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
	return exitCode(err)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: klingnet-tx [global flags] <command> [args]

Global flags:
  --network <net>         mainnet (default) or testnet
  --testnet               Shorthand for --network=testnet
  --datadir <path>        Data directory (default: ~/.klingnet-tx)
  --config, -c <path>     Config file path
  --fee-constant <n>      Override the fee constant
  --fee-coefficient <n>   Override the per-byte fee coefficient
  --account <n>           Wallet account index
  --selection <alg>       largest-first, head-first or blackjack
  --log-level <level>     debug, info, warn, error
  --log-file <path>       Write logs to a file
  --log-json              Output logs as JSON

Staging:
  new                                       Start a staged transaction
  list                                      List staged transactions
  status <id>                               Show inputs, outputs, fee and balance
  add-input <id> <txid:index> <addr> <amt>  Spend an output owned by addr
  add-output <id> <addr> <amt>              Pay amt to addr
  add-change <id> <addr>                    Send the remaining balance to addr
  remove-input <id> <txid:index>            Drop an input
  remove-output <id> <index>                Drop an output
  export <id> [--out <file>]                Write the staged transaction as YAML
  import <file>                             Stage a transaction from YAML
  destroy <id>                              Discard a staged transaction

Signing:
  sign <id> [--mnemonic-file <f>]           Finalize, sign and archive
  send --to <addr> --amount <amt> [--utxos <f>] [--change <addr>]
                                            Select inputs, sign and archive
  show <txid> [--hex]                       Show an archived transaction
  signed                                    List archived transactions

Wallet:
  utxo add <txid:index> <addr> <amt>        Track a spendable output
  utxo import <file>                        Track outputs from a JSON list
  utxo list [--address <addr>]              Show tracked outputs
  utxo remove <txid:index>                  Stop tracking an output
  utxo balance                              Show the total and set commitment
  mnemonic [--words <n>]                    Generate a recovery phrase
  address [--count <n>] [--change]          Show derived addresses
  fee <bytes> | fee --inputs <n> --outputs <n>
                                            Estimate a fee
`)
}

// usageError carries the usage line of a command called with bad arguments.
type usageError string

func (u usageError) Error() string { return "usage: " + string(u) }

// ── new / list / destroy ────────────────────────────────────────────────

func (e *env) cmdNew() error {
	id, err := e.store.Create()
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

func (e *env) cmdList() error {
	ids, err := e.store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No staged transactions")
		return nil
	}
	for _, id := range ids {
		st, err := e.store.Load(id)
		if err != nil {
			fmt.Printf("%s  (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Printf("%s  %s  %d inputs  %d outputs\n",
			id, st.Created.Format("2006-01-02 15:04:05"), len(st.Inputs), len(st.Outputs))
	}
	return nil
}

func (e *env) cmdDestroy(args []string) error {
	if len(args) != 1 {
		return usageError("destroy <id>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	if err := e.store.Destroy(id); err != nil {
		return err
	}
	fmt.Printf("Destroyed %s\n", id)
	return nil
}

// ── status ──────────────────────────────────────────────────────────────

func (e *env) cmdStatus(args []string) error {
	if len(args) != 1 {
		return usageError("status <id>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	st, err := e.store.Load(id)
	if err != nil {
		return err
	}
	b := st.Builder()

	fmt.Printf("Staging ID:  %s\n", st.ID)
	fmt.Printf("Created:     %s\n", st.Created.Format("2006-01-02 15:04:05"))
	fmt.Printf("Inputs:      %d\n", len(st.Inputs))
	for i, in := range st.Inputs {
		fmt.Printf("  [%d] %s  %s  %s\n", i, in.Outpoint, in.Address, formatAmount(in.Value))
	}
	fmt.Printf("Outputs:     %d\n", len(st.Outputs))
	for i, out := range st.Outputs {
		marker := ""
		if i == st.Change {
			marker = "  (change)"
		}
		fmt.Printf("  [%d] %s  %s%s\n", i, out.Address, formatAmount(out.Value), marker)
	}

	in, err := b.InputTotal()
	if err != nil {
		return err
	}
	out, err := b.OutputTotal()
	if err != nil {
		return err
	}
	f, err := b.Fee()
	if err != nil {
		return err
	}
	bal, err := b.Balance()
	if err != nil {
		return err
	}
	fmt.Printf("Input total: %s\n", formatAmount(in))
	fmt.Printf("Outputs sum: %s\n", formatAmount(out))
	fmt.Printf("Fee:         %s\n", formatAmount(f))
	fmt.Printf("Balance:     %s\n", signedBalance(bal))
	return nil
}

// ── add / remove ────────────────────────────────────────────────────────

func (e *env) cmdAddInput(args []string) error {
	if len(args) != 4 {
		return usageError("add-input <id> <txid:index> <address> <amount>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	op, err := types.ParseOutpoint(args[1])
	if err != nil {
		return err
	}
	addr, err := types.ParseAddress(args[2])
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	amount, err := parseAmount(args[3])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	return e.store.AddInput(id, staging.Input{Outpoint: op, Address: addr, Value: amount})
}

func (e *env) cmdAddOutput(args []string) error {
	if len(args) != 3 {
		return usageError("add-output <id> <address> <amount>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	addr, err := types.ParseAddress(args[1])
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	return e.store.AddOutput(id, tx.Output{Address: addr, Value: amount})
}

func (e *env) cmdAddChange(args []string) error {
	if len(args) != 2 {
		return usageError("add-change <id> <address>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	addr, err := types.ParseAddress(args[1])
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	out, err := e.store.AddChange(id, addr)
	if err != nil {
		return err
	}
	if out == nil {
		fmt.Println("No change: balance is not positive")
		return nil
	}
	fmt.Printf("Change: %s to %s\n", formatAmount(out.Value), out.Address)
	return nil
}

func (e *env) cmdRemoveInput(args []string) error {
	if len(args) != 2 {
		return usageError("remove-input <id> <txid:index>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	op, err := types.ParseOutpoint(args[1])
	if err != nil {
		return err
	}
	return e.store.RemoveInput(id, op)
}

func (e *env) cmdRemoveOutput(args []string) error {
	if len(args) != 2 {
		return usageError("remove-output <id> <index>")
	}
	id, err := staging.ParseID(args[0])
	if err != nil {
		return err
	}
	i, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	return e.store.RemoveOutput(id, i)
}

// ── export / import ─────────────────────────────────────────────────────

func (e *env) cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outFile := fs.String("out", "", "Write to file instead of stdout")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return usageError("export <id> [--out <file>]")
	}
	id, err := staging.ParseID(fs.Arg(0))
	if err != nil {
		return err
	}
	st, err := e.store.Load(id)
	if err != nil {
		return err
	}
	data, err := st.Export().Marshal()
	if err != nil {
		return err
	}
	if *outFile == "" {
		os.Stdout.Write(data)
		return nil
	}
	if err := os.WriteFile(*outFile, data, 0600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	fmt.Printf("Exported %s to %s\n", id, *outFile)
	return nil
}

func (e *env) cmdImport(args []string) error {
	if len(args) != 1 {
		return usageError("import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	exp, err := staging.ParseExport(data)
	if err != nil {
		return err
	}
	id, err := e.store.Import(exp)
	if err != nil {
		return err
	}
	fmt.Println(id)
	return nil
}

// ── sign ────────────────────────────────────────────────────────────────

func (e *env) cmdSign(args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	mnemonicFile := fs.String("mnemonic-file", "", "Read the recovery phrase from a file")
	noPassphrase := fs.Bool("no-passphrase", false, "Do not prompt for a passphrase")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return usageError("sign <id> [--mnemonic-file <file>] [--no-passphrase]")
	}
	id, err := staging.ParseID(fs.Arg(0))
	if err != nil {
		return err
	}
	st, err := e.store.Load(id)
	if err != nil {
		return err
	}

	keys, err := e.openKeyring(*mnemonicFile, *noPassphrase, e.cfg.Wallet.Lookahead)
	if err != nil {
		return err
	}
	defer keys.Zero()

	b := st.Builder()
	unsigned, err := b.Finalize()
	if err != nil {
		return err
	}
	if err := unsigned.Validate(); err != nil {
		return err
	}
	fin := tx.NewFinalized(unsigned, e.proto.TxParams())
	txid := fin.TxID()
	magic := e.proto.ProtocolMagic()
	for i, in := range st.Inputs {
		key, err := keys.PrivateKey(in.Address)
		if err != nil {
			return &unknownKeyError{input: i, addr: in.Address, err: err}
		}
		err = fin.AddWitness(key, magic, txid)
		clear(key)
		if err != nil {
			return err
		}
	}
	signed, err := fin.Output()
	if err != nil {
		return err
	}

	owners := make(map[types.Outpoint]types.Address, len(st.Inputs))
	for _, in := range st.Inputs {
		owners[in.Outpoint] = in.Address
	}
	if err := signed.VerifyOwners(tx.OwnerFunc(func(op types.Outpoint) (types.Address, error) {
		addr, ok := owners[op]
		if !ok {
			return types.Address{}, tx.ErrOwnerUnknown
		}
		return addr, nil
	})); err != nil {
		return err
	}
	if err := signed.VerifyWitnesses(magic); err != nil {
		return err
	}
	if err := e.archive(signed, &id, keys.Owns); err != nil {
		return err
	}

	log.CLI.Info().
		Str("staging_id", id.String()).
		Str("txid", signed.ID().String()).
		Int("size", signed.Size()).
		Msg("Transaction signed")
	printSigned(signed)
	return nil
}

// openKeyring reads the recovery phrase and derives lookahead keys on
// both chains.
func (e *env) openKeyring(mnemonicFile string, noPassphrase bool, lookahead uint32) (*wallet.Keyring, error) {
	mnemonic, err := readMnemonic(mnemonicFile)
	if err != nil {
		return nil, err
	}
	var passphrase string
	if !noPassphrase {
		pass, err := readPassword("Passphrase (empty for none): ")
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}
		passphrase = string(pass)
		clear(pass)
	}
	keys, err := wallet.KeyringFromMnemonic(mnemonic, passphrase, e.cfg.Wallet.Account)
	if err != nil {
		return nil, err
	}
	if err := keys.DeriveRange(lookahead); err != nil {
		keys.Zero()
		return nil, err
	}
	return keys, nil
}

func readMnemonic(path string) (string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read mnemonic: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	phrase, err := readPassword("Recovery phrase: ")
	if err != nil {
		return "", fmt.Errorf("read mnemonic: %w", err)
	}
	return strings.TrimSpace(string(phrase)), nil
}

func printSigned(signed *tx.SignedTransaction) {
	fmt.Printf("TxID: %s\n", signed.ID())
	fmt.Printf("Size: %d bytes\n", signed.Size())
	fmt.Printf("Hex:  %s\n", hex.EncodeToString(signed.Bytes()))
}

// ── send ────────────────────────────────────────────────────────────────

func (e *env) cmdSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	utxoFile := fs.String("utxos", "", "JSON file of spendable outputs (default: tracked outputs)")
	toAddr := fs.String("to", "", "Recipient address")
	amountStr := fs.String("amount", "", "Amount to send (e.g. 1.5)")
	changeStr := fs.String("change", "", "Change address (default: next internal address)")
	mnemonicFile := fs.String("mnemonic-file", "", "Read the recovery phrase from a file")
	noPassphrase := fs.Bool("no-passphrase", false, "Do not prompt for a passphrase")
	fs.Parse(args)

	if *toAddr == "" || *amountStr == "" {
		return usageError("send --to <addr> --amount <amt> [--utxos <file>] [--change <addr>]")
	}
	utxos, err := e.spendable(*utxoFile)
	if err != nil {
		return err
	}
	to, err := types.ParseAddress(*toAddr)
	if err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	amount, err := parseAmount(*amountStr)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}

	keys, err := e.openKeyring(*mnemonicFile, *noPassphrase, e.cfg.Wallet.Lookahead)
	if err != nil {
		return err
	}
	defer keys.Zero()

	var change types.Address
	if *changeStr != "" {
		if change, err = types.ParseAddress(*changeStr); err != nil {
			return fmt.Errorf("invalid change address: %w", err)
		}
	} else if change, err = keys.NextChange(); err != nil {
		return err
	}

	strategy, err := strategyFor(e.cfg.Wallet)
	if err != nil {
		return err
	}
	spender := &wallet.Spender{
		Params:   e.proto.TxParams(),
		Magic:    e.proto.ProtocolMagic(),
		Keys:     keys,
		Strategy: strategy,
	}
	pay, err := spender.Send(utxos, []tx.Output{{Address: to, Value: amount}}, change)
	if err != nil {
		return err
	}
	if err := e.archive(pay.Tx, nil, keys.Owns); err != nil {
		return err
	}

	fmt.Printf("Inputs: %d\n", len(pay.Selection.Inputs))
	fmt.Printf("Fee:    %s\n", formatAmount(pay.Selection.Fee))
	if pay.Selection.Change != nil {
		fmt.Printf("Change: %s to %s\n", formatAmount(pay.Selection.Change.Value), pay.Selection.Change.Address)
	}
	printSigned(pay.Tx)
	return nil
}

// archive stores signed and applies it to the tracked UTXO set in one
// batch, so a failure leaves neither the archive nor the set changed.
func (e *env) archive(signed *tx.SignedTransaction, from *staging.ID, owns func(types.Address) bool) error {
	return e.store.Archive(signed, from, func(b storage.Batch) error {
		return e.utxos.ApplyBatch(e.walletDB.WrapBatch(b), signed, owns)
	})
}

// spendable returns the UTXOs in file, or the tracked set when file is empty.
func (e *env) spendable(file string) ([]wallet.UTXO, error) {
	if file == "" {
		return e.utxos.All()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read utxos: %w", err)
	}
	return parseUTXOs(data)
}

// ── utxo ────────────────────────────────────────────────────────────────

func (e *env) cmdUTXO(args []string) error {
	if len(args) == 0 {
		return usageError("utxo <add|import|list|remove|balance> [args]")
	}
	switch args[0] {
	case "add":
		return e.cmdUTXOAdd(args[1:])
	case "import":
		return e.cmdUTXOImport(args[1:])
	case "list":
		return e.cmdUTXOList(args[1:])
	case "remove":
		if len(args) != 2 {
			return usageError("utxo remove <txid:index>")
		}
		op, err := types.ParseOutpoint(args[1])
		if err != nil {
			return err
		}
		return e.utxos.Delete(op)
	case "balance":
		return e.cmdUTXOBalance()
	default:
		return usageError("utxo <add|import|list|remove|balance> [args]")
	}
}

func (e *env) cmdUTXOAdd(args []string) error {
	if len(args) != 3 {
		return usageError("utxo add <txid:index> <address> <amount>")
	}
	op, err := types.ParseOutpoint(args[0])
	if err != nil {
		return err
	}
	addr, err := types.ParseAddress(args[1])
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	amount, err := parseAmount(args[2])
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	return e.utxos.Put(wallet.UTXO{Outpoint: op, Address: addr, Value: amount})
}

func (e *env) cmdUTXOImport(args []string) error {
	if len(args) != 1 {
		return usageError("utxo import <file>")
	}
	utxos, err := e.spendable(args[0])
	if err != nil {
		return err
	}
	for _, u := range utxos {
		if err := e.utxos.Put(u); err != nil {
			return err
		}
	}
	fmt.Printf("Tracking %d outputs\n", len(utxos))
	return nil
}

func (e *env) cmdUTXOList(args []string) error {
	fs := flag.NewFlagSet("utxo list", flag.ExitOnError)
	addrStr := fs.String("address", "", "Only outputs paying this address")
	fs.Parse(args)

	var (
		utxos []wallet.UTXO
		err   error
	)
	if *addrStr != "" {
		addr, perr := types.ParseAddress(*addrStr)
		if perr != nil {
			return fmt.Errorf("invalid address: %w", perr)
		}
		utxos, err = e.utxos.ByAddress(addr)
	} else {
		utxos, err = e.utxos.All()
	}
	if err != nil {
		return err
	}
	if len(utxos) == 0 {
		fmt.Println("No tracked outputs")
		return nil
	}
	for _, u := range utxos {
		fmt.Printf("%s  %s  %s\n", u.Outpoint, u.Address, formatAmount(u.Value))
	}
	return nil
}

func (e *env) cmdUTXOBalance() error {
	bal, err := e.utxos.Balance()
	if err != nil {
		return err
	}
	root, err := utxo.Commitment(e.utxos)
	if err != nil {
		return err
	}
	fmt.Printf("Balance:    %s\n", formatAmount(bal))
	fmt.Printf("Commitment: %s\n", root)
	return nil
}

// ── show / signed ───────────────────────────────────────────────────────

func (e *env) cmdShow(args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	asHex := fs.Bool("hex", false, "Print the raw encoding")
	fs.Parse(args)
	if fs.NArg() != 1 {
		return usageError("show <txid> [--hex]")
	}
	txid, err := types.HexToHash(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("invalid txid: %w", err)
	}
	signed, err := e.store.Signed(txid)
	if err != nil {
		return err
	}
	if *asHex {
		fmt.Println(hex.EncodeToString(signed.Bytes()))
		return nil
	}
	data, err := json.MarshalIndent(signed, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func (e *env) cmdSigned() error {
	ids, err := e.store.SignedIDs()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No signed transactions")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

// ── fee ─────────────────────────────────────────────────────────────────

func cmdFee(proto *config.Protocol, args []string) {
	fs := flag.NewFlagSet("fee", flag.ExitOnError)
	inputs := fs.Int("inputs", 0, "Number of inputs")
	outputs := fs.Int("outputs", 0, "Number of outputs")
	fs.Parse(args)

	var size int
	switch {
	case fs.NArg() == 1:
		n, err := strconv.Atoi(fs.Arg(0))
		if err != nil || n < 0 {
			fatal("invalid size %q", fs.Arg(0))
		}
		size = n
	case *inputs > 0 || *outputs > 0:
		if *inputs < 0 || *outputs < 0 {
			fatal("counts must not be negative")
		}
		size = estimateSize(*inputs, *outputs)
	default:
		fatal("Usage: klingnet-tx fee <bytes> | fee --inputs <n> --outputs <n>")
	}

	f, err := proto.Fee.EstimateFee(size)
	if err != nil {
		fatalErr(err)
	}
	fmt.Printf("Schedule: %s\n", proto.Fee)
	fmt.Printf("Size:     %d bytes\n", size)
	fmt.Printf("Fee:      %s\n", formatAmount(f))
}

// ── mnemonic / address ──────────────────────────────────────────────────

func cmdMnemonic(args []string) {
	fs := flag.NewFlagSet("mnemonic", flag.ExitOnError)
	words := fs.Int("words", wallet.DefaultMnemonicWords, "Number of words (12, 15, 18, 21 or 24)")
	fs.Parse(args)

	m, err := wallet.GenerateMnemonic(*words)
	if err != nil {
		fatalErr(err)
	}
	fmt.Println(m)
	fmt.Fprintln(os.Stderr, "Write these words down and keep them offline.")
}

func cmdAddress(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	count := fs.Int("count", 5, "Number of addresses to show")
	change := fs.Bool("change", false, "Show internal (change) addresses")
	mnemonicFile := fs.String("mnemonic-file", "", "Read the recovery phrase from a file")
	noPassphrase := fs.Bool("no-passphrase", false, "Do not prompt for a passphrase")
	fs.Parse(args)

	if *count <= 0 {
		fatal("count must be positive")
	}
	e := &env{cfg: cfg}
	keys, err := e.openKeyring(*mnemonicFile, *noPassphrase, 0)
	if err != nil {
		fatalErr(err)
	}
	defer keys.Zero()

	chain := uint32(wallet.ChangeExternal)
	if *change {
		chain = wallet.ChangeInternal
	}
	addrs, err := keys.Derive(chain, *count)
	if err != nil {
		fatalErr(err)
	}
	for _, addr := range addrs {
		path, _ := keys.Path(addr)
		fmt.Printf("%d'/%s  %s\n", keys.Account(), path, addr)
	}
}

// ── Password helper ─────────────────────────────────────────────────────

func readPassword(prompt string) ([]byte, error) {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr) // newline after hidden input
	if err != nil {
		return nil, err
	}
	return password, nil
}

// ── Error helpers ───────────────────────────────────────────────────────

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func fatalErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
	os.Exit(exitCode(err))
}
