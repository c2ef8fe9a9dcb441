// Package staging keeps transactions under construction in a key/value
// store. Each staged transaction is an append-only list of operations;
// its current state is rebuilt by replaying them into a tx.Builder.
package staging

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Klingon-tech/klingnet-txbuilder/internal/log"
	"github.com/Klingon-tech/klingnet-txbuilder/internal/storage"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
)

// Staging errors.
var (
	ErrUnknown       = errors.New("unknown staging id")
	ErrInputNotFound = errors.New("input not staged")
	ErrNotSigned     = errors.New("no signed transaction with this id")
)

// Key prefixes.
var (
	prefixStaging = []byte("stg/")
	prefixSigned  = []byte("sig/")
)

// Input is a staged input together with the address that must sign it.
type Input struct {
	Outpoint types.Outpoint `json:"outpoint"`
	Address  types.Address  `json:"address"`
	Value    coin.Coin      `json:"value"`
}

// Staged is the replayed state of a staged transaction.
type Staged struct {
	ID      ID
	Created time.Time
	Ops     []Op
	Inputs  []Input
	Outputs []tx.Output
	// Change is the index of the change output, -1 if none.
	Change int

	builder *tx.Builder
}

// Builder returns the builder holding the staged inputs and outputs.
// Changes to it are not persisted.
func (s *Staged) Builder() *tx.Builder {
	return s.builder
}

// Store persists staged transactions and signed results.
type Store struct {
	mu     sync.Mutex
	db     storage.DB
	params tx.Params
	now    func() time.Time
}

// NewStore creates a store over db. Replayed builders use params.
func NewStore(db storage.DB, params tx.Params) *Store {
	return &Store{db: db, params: params, now: time.Now}
}

// Params returns the parameters replayed builders use.
func (s *Store) Params() tx.Params {
	return s.params
}

func (s *Store) ns(id ID) *storage.PrefixDB {
	p := make([]byte, 0, len(prefixStaging)+len(id)+1)
	p = append(p, prefixStaging...)
	p = append(p, id[:]...)
	p = append(p, '/')
	return storage.NewPrefixDB(s.db, p)
}

func seqKey(seq uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], seq)
	return k[:]
}

// Create starts a new, empty staged transaction.
func (s *Store) Create() (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id, err := NewID()
		if err != nil {
			return id, err
		}
		ns := s.ns(id)
		taken, err := ns.Has(seqKey(0))
		if err != nil {
			return id, err
		}
		if taken {
			continue
		}
		data, err := encodeOp(Op{Kind: OpCreate, Time: s.now()})
		if err != nil {
			return id, err
		}
		if err := ns.Put(seqKey(0), data); err != nil {
			return id, fmt.Errorf("create %s: %w", id, err)
		}
		log.Staging.Debug().Stringer("id", id).Msg("Staged transaction created")
		return id, nil
	}
}

// List returns the ids of all staged transactions in key order.
func (s *Store) List() ([]ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []ID
	err := s.db.ForEach(prefixStaging, func(key, _ []byte) error {
		rest := key[len(prefixStaging):]
		if len(rest) < len(ID{}) {
			return nil
		}
		var id ID
		copy(id[:], rest)
		if len(ids) == 0 || ids[len(ids)-1] != id {
			ids = append(ids, id)
		}
		return nil
	})
	return ids, err
}

// Load replays a staged transaction.
func (s *Store) Load(id ID) (*Staged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, _, err := s.replay(id)
	return st, err
}

func (s *Store) replay(id ID) (*Staged, uint64, error) {
	st := &Staged{ID: id, Change: -1, builder: tx.NewBuilder(s.params)}
	var next uint64
	err := s.ns(id).ForEach(nil, func(key, value []byte) error {
		if len(key) != 8 || binary.BigEndian.Uint64(key) != next {
			return fmt.Errorf("%w: unexpected key %x", ErrCorrupt, key)
		}
		op, err := decodeOp(value)
		if err != nil {
			return fmt.Errorf("record %d: %w", next, err)
		}
		if (next == 0) != (op.Kind == OpCreate) {
			return fmt.Errorf("%w: %s at record %d", ErrCorrupt, op.Kind, next)
		}
		if op.Kind == OpCreate {
			st.Created = op.Time
		} else if _, err := st.apply(op); err != nil {
			return fmt.Errorf("%w: replay record %d: %v", ErrCorrupt, next, err)
		}
		st.Ops = append(st.Ops, op)
		next++
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("staging %s: %w", id, err)
	}
	if next == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrUnknown, id)
	}
	return st, next, nil
}

// apply runs op against the builder and mirrors it in the view. It
// returns the output AddChangeAddr produced, if any.
func (st *Staged) apply(op Op) (*tx.Output, error) {
	b := st.builder
	switch op.Kind {
	case OpAddInput:
		for _, in := range st.Inputs {
			if in.Outpoint == op.Outpoint {
				return nil, fmt.Errorf("%w: %s", tx.ErrDuplicateInput, op.Outpoint)
			}
		}
		if err := b.AddInput(op.Outpoint, op.Value); err != nil {
			return nil, err
		}
		st.Inputs = append(st.Inputs, Input{Outpoint: op.Outpoint, Address: op.Address, Value: op.Value})

	case OpRemoveInput:
		i := st.inputIndex(op.Outpoint)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, op.Outpoint)
		}
		if err := b.RemoveInput(i); err != nil {
			return nil, err
		}
		st.Inputs = append(st.Inputs[:i], st.Inputs[i+1:]...)

	case OpAddOutput:
		out := tx.Output{Address: op.Address, Value: op.Value}
		if err := b.AddOutput(out); err != nil {
			return nil, err
		}
		st.Outputs = append(st.Outputs, out)

	case OpRemoveOutput:
		if err := b.RemoveOutput(op.Index); err != nil {
			return nil, err
		}
		st.Outputs = append(st.Outputs[:op.Index], st.Outputs[op.Index+1:]...)
		switch {
		case st.Change == op.Index:
			st.Change = -1
		case st.Change > op.Index:
			st.Change--
		}

	case OpAddChange:
		out, err := b.AddChangeAddr(op.Address)
		if err != nil || out == nil {
			return nil, err
		}
		st.Outputs = append(st.Outputs, *out)
		st.Change = len(st.Outputs) - 1
		return out, nil

	default:
		return nil, fmt.Errorf("unexpected operation %s", op.Kind)
	}
	return nil, nil
}

func (st *Staged) inputIndex(op types.Outpoint) int {
	for i, in := range st.Inputs {
		if in.Outpoint == op {
			return i
		}
	}
	return -1
}

// record validates op against the current state and appends it. Ops
// that leave the state unchanged are not recorded.
func (s *Store) record(id ID, op Op) (*Staged, *tx.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, next, err := s.replay(id)
	if err != nil {
		return nil, nil, err
	}
	out, err := st.apply(op)
	if err != nil {
		return nil, nil, err
	}
	if op.Kind == OpAddChange && out == nil {
		return st, nil, nil
	}
	data, err := encodeOp(op)
	if err != nil {
		return nil, nil, err
	}
	if err := s.ns(id).Put(seqKey(next), data); err != nil {
		return nil, nil, fmt.Errorf("staging %s: %w", id, err)
	}
	st.Ops = append(st.Ops, op)
	log.Staging.Debug().
		Stringer("id", id).
		Stringer("op", op.Kind).
		Uint64("seq", next).
		Msg("Operation recorded")
	return st, out, nil
}

// AddInput stages an input owned by in.Address.
func (s *Store) AddInput(id ID, in Input) error {
	_, _, err := s.record(id, Op{Kind: OpAddInput, Outpoint: in.Outpoint, Address: in.Address, Value: in.Value})
	return err
}

// RemoveInput unstages the input spending op.
func (s *Store) RemoveInput(id ID, op types.Outpoint) error {
	_, _, err := s.record(id, Op{Kind: OpRemoveInput, Outpoint: op})
	return err
}

// AddOutput stages an output.
func (s *Store) AddOutput(id ID, out tx.Output) error {
	_, _, err := s.record(id, Op{Kind: OpAddOutput, Address: out.Address, Value: out.Value})
	return err
}

// RemoveOutput unstages the output at index i.
func (s *Store) RemoveOutput(id ID, i int) error {
	_, _, err := s.record(id, Op{Kind: OpRemoveOutput, Index: i})
	return err
}

// AddChange sends the staged balance to addr. It returns nil when there
// is nothing to send.
func (s *Store) AddChange(id ID, addr types.Address) (*tx.Output, error) {
	_, out, err := s.record(id, Op{Kind: OpAddChange, Address: addr})
	return out, err
}

// Destroy removes a staged transaction.
func (s *Store) Destroy(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.ns(id)
	ok, err := ns.Has(seqKey(0))
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknown, id)
	}
	if err := ns.DeleteAll(); err != nil {
		return fmt.Errorf("destroy %s: %w", id, err)
	}
	log.Staging.Debug().Stringer("id", id).Msg("Staged transaction destroyed")
	return nil
}

// BatchFunc queues extra writes into the batch that archives a signed
// transaction. They commit together with the archive or not at all.
type BatchFunc func(b storage.Batch) error

// Archive stores a signed transaction under its id and, if from is
// non-nil, destroys the staged transaction it came from in the same batch.
// Each also func adds its own writes to that batch before it commits.
func (s *Store) Archive(signed *tx.SignedTransaction, from *ID, also ...BatchFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	txid := signed.ID()
	batch := storage.NewBatch(s.db)
	if err := batch.Put(signedKey(txid), signed.Bytes()); err != nil {
		return err
	}
	if from != nil {
		prefix := s.ns(*from)
		err := s.db.ForEach(prefix.Prefix(), func(key, _ []byte) error {
			return batch.Delete(key)
		})
		if err != nil {
			return err
		}
	}
	for _, fn := range also {
		if err := fn(batch); err != nil {
			return fmt.Errorf("archive %s: %w", txid, err)
		}
	}
	if err := batch.Commit(); err != nil {
		return fmt.Errorf("archive %s: %w", txid, err)
	}
	log.Staging.Info().Stringer("txid", txid).Int("size", signed.Size()).Msg("Signed transaction archived")
	return nil
}

// Signed loads an archived signed transaction.
func (s *Store) Signed(txid types.TxID) (*tx.SignedTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.db.Get(signedKey(txid))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotSigned, txid)
	}
	if err != nil {
		return nil, err
	}
	return tx.DecodeSignedTransactionLimit(data, s.params.Limit)
}

// SignedIDs lists archived transaction ids in ascending order.
func (s *Store) SignedIDs() ([]types.TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []types.TxID
	err := s.db.ForEach(prefixSigned, func(key, _ []byte) error {
		var txid types.TxID
		copy(txid[:], key[len(prefixSigned):])
		ids = append(ids, txid)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })
	return ids, nil
}

func signedKey(txid types.TxID) []byte {
	return append(append([]byte(nil), prefixSigned...), txid[:]...)
}
