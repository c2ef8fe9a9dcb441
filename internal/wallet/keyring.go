package wallet

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/crypto"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// ErrUnknownAddress is returned when the keyring holds no key for an address.
var ErrUnknownAddress = errors.New("address not in keyring")

// KeyPath locates a derived key under the keyring's account.
type KeyPath struct {
	Change uint32 `json:"change"`
	Index  uint32 `json:"index"`
}

func (p KeyPath) String() string {
	return fmt.Sprintf("%d/%d", p.Change, p.Index)
}

type keyEntry struct {
	path KeyPath
	priv []byte
}

// Keyring maps addresses to private keys derived from one account.
// It is safe for concurrent use.
type Keyring struct {
	mu      sync.RWMutex
	account *HDKey
	number  uint32
	keys    map[types.Address]keyEntry
	next    [2]uint32 // next unused index per chain
}

// NewKeyring creates an empty keyring for m/44'/1815'/account'.
func NewKeyring(master *HDKey, account uint32) (*Keyring, error) {
	acct, err := master.DeriveAccount(account)
	if err != nil {
		return nil, fmt.Errorf("derive account %d: %w", account, err)
	}
	if !acct.IsPrivate() {
		return nil, fmt.Errorf("account %d: public key cannot sign", account)
	}
	return &Keyring{
		account: acct,
		number:  account,
		keys:    make(map[types.Address]keyEntry),
	}, nil
}

// KeyringFromMnemonic derives the master key from a mnemonic and
// passphrase and returns a keyring for account.
func KeyringFromMnemonic(mnemonic, passphrase string, account uint32) (*Keyring, error) {
	seed, err := SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return nil, err
	}
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	return NewKeyring(master, account)
}

// Account returns the account number.
func (k *Keyring) Account() uint32 {
	return k.number
}

// Derive adds count keys on the given chain, continuing from the last
// derived index, and returns their addresses.
func (k *Keyring) Derive(change uint32, count int) ([]types.Address, error) {
	if change > ChangeInternal {
		return nil, fmt.Errorf("unknown chain %d", change)
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	addrs := make([]types.Address, 0, count)
	for i := 0; i < count; i++ {
		path := KeyPath{Change: change, Index: k.next[change]}
		addr, err := k.deriveLocked(path)
		if err != nil {
			return nil, err
		}
		k.next[change]++
		addrs = append(addrs, addr)
	}
	return addrs, nil
}

// DeriveRange ensures keys for indices [0, count) exist on both chains.
func (k *Keyring) DeriveRange(count uint32) error {
	for _, change := range []uint32{ChangeExternal, ChangeInternal} {
		k.mu.RLock()
		have := k.next[change]
		k.mu.RUnlock()
		if have >= count {
			continue
		}
		if _, err := k.Derive(change, int(count-have)); err != nil {
			return err
		}
	}
	return nil
}

// NextChange derives a fresh address on the internal chain.
func (k *Keyring) NextChange() (types.Address, error) {
	addrs, err := k.Derive(ChangeInternal, 1)
	if err != nil {
		return types.Address{}, err
	}
	return addrs[0], nil
}

func (k *Keyring) deriveLocked(path KeyPath) (types.Address, error) {
	key, err := k.account.DerivePath(path.Change, path.Index)
	if err != nil {
		return types.Address{}, fmt.Errorf("derive %s: %w", path, err)
	}
	addr := key.Address()
	k.keys[addr] = keyEntry{path: path, priv: key.PrivateKeyBytes()}
	return addr, nil
}

// Owns reports whether the keyring holds a key for addr.
func (k *Keyring) Owns(addr types.Address) bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	_, ok := k.keys[addr]
	return ok
}

// Path returns where the key for addr was derived.
func (k *Keyring) Path(addr types.Address) (KeyPath, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[addr]
	if !ok {
		return KeyPath{}, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	return e.path, nil
}

// PrivateKey returns a copy of the raw 32-byte key for addr.
func (k *Keyring) PrivateKey(addr types.Address) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAddress, addr)
	}
	return append([]byte(nil), e.priv...), nil
}

// Signer returns a signer for addr. Callers should Zero it when done.
func (k *Keyring) Signer(addr types.Address) (*crypto.PrivateKey, error) {
	priv, err := k.PrivateKey(addr)
	if err != nil {
		return nil, err
	}
	defer clear(priv)
	return crypto.PrivateKeyFromBytes(priv)
}

// Addresses returns all known addresses ordered by chain and index.
func (k *Keyring) Addresses() []types.Address {
	k.mu.RLock()
	defer k.mu.RUnlock()
	addrs := make([]types.Address, 0, len(k.keys))
	for addr := range k.keys {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		pi, pj := k.keys[addrs[i]].path, k.keys[addrs[j]].path
		if pi.Change != pj.Change {
			return pi.Change < pj.Change
		}
		return pi.Index < pj.Index
	})
	return addrs
}

// Zero wipes all private keys and empties the keyring.
func (k *Keyring) Zero() {
	k.mu.Lock()
	defer k.mu.Unlock()
	for addr, e := range k.keys {
		clear(e.priv)
		delete(k.keys, addr)
	}
	k.next = [2]uint32{}
}
