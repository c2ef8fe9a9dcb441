package utxo

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/internal/log"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/storage"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/wallet"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Store errors.
var (
	ErrNotFound  = errors.New("utxo not found")
	ErrZeroValue = errors.New("utxo has zero value")
)

// Key prefixes for the UTXO store.
var (
	prefixUTXO = []byte("u/") // u/<txid><index> -> UTXO JSON
	prefixAddr = []byte("a/") // a/<address><txid><index> -> empty (index)
)

// Store implements Set backed by a storage.DB.
type Store struct {
	db storage.DB
}

// NewStore creates a new UTXO store backed by the given database.
func NewStore(db storage.DB) *Store {
	return &Store{db: db}
}

// utxoKey builds a storage key for an outpoint: "u/" + txid(32) + index(4).
func utxoKey(op types.Outpoint) []byte {
	key := make([]byte, len(prefixUTXO)+types.HashSize+4)
	copy(key, prefixUTXO)
	copy(key[len(prefixUTXO):], op.TxID[:])
	binary.BigEndian.PutUint32(key[len(prefixUTXO)+types.HashSize:], op.Index)
	return key
}

// addrPrefix is "a/" + addr(20).
func addrPrefix(addr types.Address) []byte {
	key := make([]byte, len(prefixAddr)+types.AddressSize)
	copy(key, prefixAddr)
	copy(key[len(prefixAddr):], addr[:])
	return key
}

// addrKey builds an address index key: "a/" + addr(20) + txid(32) + index(4).
func addrKey(addr types.Address, op types.Outpoint) []byte {
	key := make([]byte, len(prefixAddr)+types.AddressSize+types.HashSize+4)
	copy(key, addrPrefix(addr))
	off := len(prefixAddr) + types.AddressSize
	copy(key[off:], op.TxID[:])
	binary.BigEndian.PutUint32(key[off+types.HashSize:], op.Index)
	return key
}

// Get retrieves a UTXO by its outpoint.
func (s *Store) Get(outpoint types.Outpoint) (*wallet.UTXO, error) {
	data, err := s.db.Get(utxoKey(outpoint))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, outpoint)
	}
	if err != nil {
		return nil, fmt.Errorf("utxo get: %w", err)
	}
	var u wallet.UTXO
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("utxo unmarshal: %w", err)
	}
	return &u, nil
}

// Put stores a UTXO and updates the address index.
func (s *Store) Put(u wallet.UTXO) error {
	b := storage.NewBatch(s.db)
	if err := putBatch(b, u); err != nil {
		return err
	}
	return b.Commit()
}

func putBatch(b storage.Batch, u wallet.UTXO) error {
	if u.Value == 0 {
		return fmt.Errorf("%w: %s", ErrZeroValue, u.Outpoint)
	}
	if _, err := coin.New(uint64(u.Value)); err != nil {
		return fmt.Errorf("utxo %s: %w", u.Outpoint, err)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("utxo marshal: %w", err)
	}
	if err := b.Put(utxoKey(u.Outpoint), data); err != nil {
		return fmt.Errorf("utxo put: %w", err)
	}
	if err := b.Put(addrKey(u.Address, u.Outpoint), []byte{}); err != nil {
		return fmt.Errorf("utxo index put: %w", err)
	}
	return nil
}

// Delete removes a UTXO and its address index entry.
func (s *Store) Delete(outpoint types.Outpoint) error {
	b := storage.NewBatch(s.db)
	if _, err := s.deleteBatch(b, outpoint); err != nil {
		return err
	}
	return b.Commit()
}

// deleteBatch queues removal of outpoint. It reports whether the UTXO
// was present.
func (s *Store) deleteBatch(b storage.Batch, outpoint types.Outpoint) (bool, error) {
	u, err := s.Get(outpoint)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := b.Delete(addrKey(u.Address, outpoint)); err != nil {
		return false, fmt.Errorf("utxo index delete: %w", err)
	}
	if err := b.Delete(utxoKey(outpoint)); err != nil {
		return false, fmt.Errorf("utxo delete: %w", err)
	}
	return true, nil
}

// Has checks if a UTXO exists for the given outpoint.
func (s *Store) Has(outpoint types.Outpoint) (bool, error) {
	return s.db.Has(utxoKey(outpoint))
}

// ForEach iterates over all UTXOs in the store.
func (s *Store) ForEach(fn func(*wallet.UTXO) error) error {
	return s.db.ForEach(prefixUTXO, func(_, value []byte) error {
		var u wallet.UTXO
		if err := json.Unmarshal(value, &u); err != nil {
			return fmt.Errorf("utxo unmarshal: %w", err)
		}
		return fn(&u)
	})
}

// All returns every UTXO ordered by outpoint.
func (s *Store) All() ([]wallet.UTXO, error) {
	var utxos []wallet.UTXO
	err := s.ForEach(func(u *wallet.UTXO) error {
		utxos = append(utxos, *u)
		return nil
	})
	return utxos, err
}

// ByAddress returns the UTXOs paying addr.
func (s *Store) ByAddress(addr types.Address) ([]wallet.UTXO, error) {
	var utxos []wallet.UTXO
	err := s.db.ForEach(addrPrefix(addr), func(key, _ []byte) error {
		// Key layout: "a/" + addr(20) + txid(32) + index(4).
		off := len(prefixAddr) + types.AddressSize
		if len(key) < off+types.HashSize+4 {
			return nil // Malformed key, skip.
		}
		var op types.Outpoint
		copy(op.TxID[:], key[off:off+types.HashSize])
		op.Index = binary.BigEndian.Uint32(key[off+types.HashSize:])

		u, err := s.Get(op)
		if err != nil {
			return nil // Index entry without a record, skip.
		}
		utxos = append(utxos, *u)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan address index: %w", err)
	}
	return utxos, nil
}

// Balance sums every UTXO in the store.
func (s *Store) Balance() (coin.Coin, error) {
	total := coin.Zero
	err := s.ForEach(func(u *wallet.UTXO) error {
		var err error
		total, err = coin.Add(total, u.Value)
		return err
	})
	return total, err
}

// Apply removes the outputs signed spends and adds its outputs paying an
// address for which owns is true. Inputs the store does not know are
// ignored. Everything is written in one batch.
func (s *Store) Apply(signed *tx.SignedTransaction, owns func(types.Address) bool) error {
	b := storage.NewBatch(s.db)
	spent, received, err := s.queue(b, signed, owns)
	if err != nil {
		return err
	}
	txid := signed.ID()
	if err := b.Commit(); err != nil {
		return fmt.Errorf("apply %s: %w", txid, err)
	}
	log.Wallet.Debug().
		Str("txid", txid.String()).
		Int("spent", spent).
		Int("received", received).
		Msg("Applied transaction to UTXO set")
	return nil
}

// ApplyBatch queues the writes of Apply into b without committing it. b must
// address the same keyspace as the store; the caller commits it together
// with its own writes.
func (s *Store) ApplyBatch(b storage.Batch, signed *tx.SignedTransaction, owns func(types.Address) bool) error {
	spent, received, err := s.queue(b, signed, owns)
	if err != nil {
		return err
	}
	log.Wallet.Debug().
		Str("txid", signed.ID().String()).
		Int("spent", spent).
		Int("received", received).
		Msg("Queued transaction for UTXO set")
	return nil
}

func (s *Store) queue(b storage.Batch, signed *tx.SignedTransaction, owns func(types.Address) bool) (spent, received int, err error) {
	for _, op := range signed.Tx.Inputs {
		ok, err := s.deleteBatch(b, op)
		if err != nil {
			return 0, 0, err
		}
		if ok {
			spent++
		}
	}
	txid := signed.ID()
	for i, out := range signed.Tx.Outputs {
		if owns == nil || !owns(out.Address) {
			continue
		}
		u := wallet.UTXO{
			Outpoint: types.Outpoint{TxID: txid, Index: uint32(i)},
			Address:  out.Address,
			Value:    out.Value,
		}
		if err := putBatch(b, u); err != nil {
			return 0, 0, err
		}
		received++
	}
	return spent, received, nil
}

// ClearAll removes all UTXOs and their address index.
func (s *Store) ClearAll() error {
	b := storage.NewBatch(s.db)
	for _, prefix := range [][]byte{prefixUTXO, prefixAddr} {
		if err := s.db.ForEach(prefix, func(key, _ []byte) error {
			return b.Delete(append([]byte(nil), key...))
		}); err != nil {
			return fmt.Errorf("scan prefix %s: %w", prefix, err)
		}
	}
	return b.Commit()
}
