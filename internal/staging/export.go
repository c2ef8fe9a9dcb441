package staging

import (
	"fmt"

	"github.com/Klingon-tech/klingnet-txbuilder/pkg/coin"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/tx"
	"github.com/Klingon-tech/klingnet-txbuilder/pkg/types"
	"gopkg.in/yaml.v3"
)

// Export is the human-readable form of a staged transaction. It carries
// the current inputs and outputs, not the operation history.
type Export struct {
	ID      string         `yaml:"staging_id"`
	Inputs  []ExportInput  `yaml:"inputs"`
	Outputs []ExportOutput `yaml:"outputs"`
	// Change is the index into Outputs of the change output, if any.
	Change *int `yaml:"change,omitempty"`
}

// ExportInput is a staged input in exported form.
type ExportInput struct {
	Outpoint string `yaml:"outpoint"`
	Address  string `yaml:"address"`
	Value    uint64 `yaml:"value"`
}

// ExportOutput is a staged output in exported form.
type ExportOutput struct {
	Address string `yaml:"address"`
	Value   uint64 `yaml:"value"`
}

// Export returns the exported form of st.
func (st *Staged) Export() *Export {
	e := &Export{ID: st.ID.String()}
	for _, in := range st.Inputs {
		e.Inputs = append(e.Inputs, ExportInput{
			Outpoint: in.Outpoint.String(),
			Address:  in.Address.String(),
			Value:    uint64(in.Value),
		})
	}
	for _, out := range st.Outputs {
		e.Outputs = append(e.Outputs, ExportOutput{
			Address: out.Address.String(),
			Value:   uint64(out.Value),
		})
	}
	if st.Change >= 0 {
		c := st.Change
		e.Change = &c
	}
	return e
}

// Marshal encodes e as a YAML document.
func (e *Export) Marshal() ([]byte, error) {
	return yaml.Marshal(e)
}

// ParseExport decodes a YAML export.
func ParseExport(data []byte) (*Export, error) {
	var e Export
	if err := yaml.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("parse export: %w", err)
	}
	return &e, nil
}

// Import recreates an exported transaction under its original id. A
// change output comes back as a plain output.
func (s *Store) Import(e *Export) (ID, error) {
	id, err := ParseID(e.ID)
	if err != nil {
		return id, err
	}
	ops := []Op{{Kind: OpCreate, Time: s.now()}}
	for i, in := range e.Inputs {
		op, err := types.ParseOutpoint(in.Outpoint)
		if err != nil {
			return id, fmt.Errorf("input %d: %w", i, err)
		}
		addr, err := types.ParseAddress(in.Address)
		if err != nil {
			return id, fmt.Errorf("input %d: %w", i, err)
		}
		v, err := coin.New(in.Value)
		if err != nil {
			return id, fmt.Errorf("input %d: %w", i, err)
		}
		ops = append(ops, Op{Kind: OpAddInput, Outpoint: op, Address: addr, Value: v})
	}
	for i, out := range e.Outputs {
		addr, err := types.ParseAddress(out.Address)
		if err != nil {
			return id, fmt.Errorf("output %d: %w", i, err)
		}
		v, err := coin.New(out.Value)
		if err != nil {
			return id, fmt.Errorf("output %d: %w", i, err)
		}
		ops = append(ops, Op{Kind: OpAddOutput, Address: addr, Value: v})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ns := s.ns(id)
	taken, err := ns.Has(seqKey(0))
	if err != nil {
		return id, err
	}
	if taken {
		return id, fmt.Errorf("staging %s already exists", id)
	}

	// Check the ops replay before writing anything.
	st := &Staged{ID: id, Change: -1, builder: tx.NewBuilder(s.params)}
	for _, op := range ops[1:] {
		if _, err := st.apply(op); err != nil {
			return id, err
		}
	}
	batch := ns.NewBatch()
	for seq, op := range ops {
		data, err := encodeOp(op)
		if err != nil {
			return id, err
		}
		if err := batch.Put(seqKey(uint64(seq)), data); err != nil {
			return id, err
		}
	}
	if err := batch.Commit(); err != nil {
		return id, fmt.Errorf("import %s: %w", id, err)
	}
	return id, nil
}
