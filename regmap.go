package pandasim

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrInvalidAddress reports a (block, instance, register) triple with no
// backing register. Callers compare against it with errors.Cause.
var ErrInvalidAddress = errors.New("invalid address")

// BlockAddress identifies one block instance.
type BlockAddress struct {
	Type uint8 // block type id
	Num  uint8 // instance number, 0-based
}

// RegAddress identifies one register of one block instance.
type RegAddress struct {
	BlockAddress
	Reg uint8
}

// Instance is one mounted block: its committed register file, its
// tables and the model that advances them.
type Instance struct {
	Spec *BlockSpec
	Addr BlockAddress

	// committed state, guarded by the register map's lock
	regs   []uint32
	tables map[uint8][]uint32
	model  Model
	fault  error // last tick failure, nil while healthy
}

// RegisterMap resolves numeric addresses to block instances and owns
// all register state shared between connections and the simulation
// clock.
//
// Reads return the state committed by the most recently completed tick.
// Writes are queued and applied at the next tick boundary; two writes
// to the same register before a boundary coalesce, the latest wins.
// Table writes replace the whole table at the boundary, so a tick sees
// either the old or the new table in full.
//
type RegisterMap struct {
	mu sync.RWMutex

	// immutable after NewRegisterMap
	instances map[BlockAddress]*Instance
	order     []*Instance // ascending (type, instance) tick order

	// write queues, guarded by mu
	pending       map[RegAddress]uint32
	pendingTables map[RegAddress][]uint32

	dirty chan struct{} // signaled when a write is queued
}

// NewRegisterMap builds the register map for the given configuration.
// Every block type named by cfg must have been registered beforehand.
func NewRegisterMap(cfg Config) (*RegisterMap, error) {
	m := &RegisterMap{
		instances:     make(map[BlockAddress]*Instance),
		pending:       make(map[RegAddress]uint32),
		pendingTables: make(map[RegAddress][]uint32),
		dirty:         make(chan struct{}, 1),
	}
	for _, b := range cfg.Blocks {
		spec := Lookup(b.Type)
		if spec == nil {
			return nil, errors.Errorf("unknown block type %#02x", b.Type)
		}
		if b.Instances < 1 || b.Instances > 256 {
			return nil, errors.Errorf("block %s: instance count %d out of range", spec.Name, b.Instances)
		}
		for i := 0; i < b.Instances; i++ {
			addr := BlockAddress{Type: b.Type, Num: uint8(i)}
			if _, ok := m.instances[addr]; ok {
				return nil, errors.Errorf("duplicate block %#02x in configuration", b.Type)
			}
			inst := &Instance{
				Spec:   spec,
				Addr:   addr,
				regs:   make([]uint32, spec.Registers),
				tables: make(map[uint8][]uint32, len(spec.Tables)),
				model:  spec.New(),
			}
			for _, t := range spec.Tables {
				inst.tables[t] = nil
			}
			m.instances[addr] = inst
			m.order = append(m.order, inst)
		}
	}
	if len(m.order) == 0 {
		return nil, errors.New("empty block configuration")
	}
	sort.Slice(m.order, func(i, j int) bool {
		a, b := m.order[i].Addr, m.order[j].Addr
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		return a.Num < b.Num
	})
	return m, nil
}

// resolve maps an address triple to its instance. The instance table is
// immutable, so no lock is needed.
func (m *RegisterMap) resolve(block, num, reg uint8) (*Instance, error) {
	inst, ok := m.instances[BlockAddress{Type: block, Num: num}]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidAddress, "no block %#02x instance %d", block, num)
	}
	if int(reg) >= inst.Spec.Registers {
		return nil, errors.Wrapf(ErrInvalidAddress, "%s.%d has no register %d", inst.Spec.Name, num, reg)
	}
	return inst, nil
}

// Read returns the committed value of one register.
func (m *RegisterMap) Read(block, num, reg uint8) (uint32, error) {
	inst, err := m.resolve(block, num, reg)
	if err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return inst.regs[reg], nil
}

// Write queues a register write to be applied at the next tick
// boundary.
func (m *RegisterMap) Write(block, num, reg uint8, value uint32) error {
	inst, err := m.resolve(block, num, reg)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.pending[RegAddress{inst.Addr, reg}] = value
	m.mu.Unlock()
	m.signal()
	return nil
}

// WriteTable queues a full table replacement for a table-backed
// register. The words are copied; the replacement is atomic with
// respect to ticking. An empty table is valid and clears the table.
func (m *RegisterMap) WriteTable(block, num, reg uint8, words []uint32) error {
	inst, err := m.resolve(block, num, reg)
	if err != nil {
		return err
	}
	if !inst.Spec.isTable(reg) {
		return errors.Wrapf(ErrInvalidAddress, "%s.%d register %d is not a table", inst.Spec.Name, num, reg)
	}
	cp := make([]uint32, len(words))
	copy(cp, words)
	m.mu.Lock()
	m.pendingTables[RegAddress{inst.Addr, reg}] = cp
	m.mu.Unlock()
	m.signal()
	return nil
}

// Table returns a copy of the committed table backing a register.
func (m *RegisterMap) Table(block, num, reg uint8) ([]uint32, error) {
	inst, err := m.resolve(block, num, reg)
	if err != nil {
		return nil, err
	}
	if !inst.Spec.isTable(reg) {
		return nil, errors.Wrapf(ErrInvalidAddress, "%s.%d register %d is not a table", inst.Spec.Name, num, reg)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := inst.tables[reg]
	cp := make([]uint32, len(t))
	copy(cp, t)
	return cp, nil
}

// Faults returns the faulted instances and their last tick error.
func (m *RegisterMap) Faults() map[BlockAddress]error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[BlockAddress]error)
	for addr, inst := range m.instances {
		if inst.fault != nil {
			out[addr] = inst.fault
		}
	}
	return out
}

// Dirty returns a channel signaled whenever a write is queued. The
// simulation clock uses it to fire an early tick boundary instead of
// waiting out the full period.
func (m *RegisterMap) Dirty() <-chan struct{} { return m.dirty }

func (m *RegisterMap) signal() {
	select {
	case m.dirty <- struct{}{}:
	default:
	}
}

// applyPending commits queued register and table writes. Called by the
// clock at a tick boundary with m.mu held. Queue iteration order does
// not matter: entries are keyed by register, so they never overlap.
func (m *RegisterMap) applyPending() {
	for addr, v := range m.pending {
		m.instances[addr.BlockAddress].regs[addr.Reg] = v
		delete(m.pending, addr)
	}
	for addr, t := range m.pendingTables {
		m.instances[addr.BlockAddress].tables[addr.Reg] = t
		delete(m.pendingTables, addr)
	}
}
