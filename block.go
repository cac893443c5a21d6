package pandasim

import (
	"sort"

	"github.com/pkg/errors"
)

// A Model is the behavioral model of one block instance. The simulation
// clock calls Tick exactly once per simulation step, in ascending
// address order across all instances.
//
// regs is the instance's register file with all writes queued since the
// previous boundary already applied; the model mutates it in place.
// Returned words are appended to the global capture stream in call
// order. A non-nil error (or a panic) marks the instance faulted: the
// register file keeps its last-known-good contents and the clock moves
// on to the next instance.
//
type Model interface {
	Tick(t *TickInfo, regs *RegFile) (capture []uint32, err error)
}

// TickInfo carries per-tick context shared by every model advanced at
// the same boundary.
type TickInfo struct {
	// N is the tick number, starting at 1 for the first boundary.
	N uint64

	endCapture bool
}

// EndCapture marks the capture stream's end condition. The stream is
// closed once the boundary completes; drains return end-of-stream after
// the buffer empties.
func (t *TickInfo) EndCapture() { t.endCapture = true }

// A BlockSpec is the blueprint for a block type: its wire identity, its
// register layout and a constructor for its model.
//
// Custom block types are implemented by registering a BlockSpec:
//
//	pandasim.Register(&pandasim.BlockSpec{
//		Name:      "CNT",
//		Type:      0x05,
//		Registers: 7,
//		New:       func() pandasim.Model { return &counter{} },
//	})
//
type BlockSpec struct {
	// Block type name, as referenced by configuration files.
	Name string
	// Block type id on the wire.
	Type uint8
	// Number of 32-bit registers per instance.
	Registers int
	// Register ids backed by a table rather than a scalar value.
	Tables []uint8
	// New returns a fresh model for one instance.
	New func() Model
}

func (s *BlockSpec) isTable(reg uint8) bool {
	for _, t := range s.Tables {
		if t == reg {
			return true
		}
	}
	return false
}

// The block type registry. Registration happens from package init
// functions before any simulator is built, so lookups need no locking.
var (
	specsByType = make(map[uint8]*BlockSpec)
	specsByName = make(map[string]*BlockSpec)
)

// Register adds a block type to the registry. It panics on an invalid
// spec or a duplicate type id or name, which are programmer errors.
//
func Register(spec *BlockSpec) {
	if err := checkSpec(spec); err != nil {
		panic(err)
	}
	specsByType[spec.Type] = spec
	specsByName[spec.Name] = spec
}

func checkSpec(spec *BlockSpec) error {
	if spec.Name == "" {
		return errors.New("block spec with empty name")
	}
	if spec.Registers <= 0 || spec.Registers > 256 {
		return errors.Errorf("block %s: register count %d out of range", spec.Name, spec.Registers)
	}
	if spec.New == nil {
		return errors.Errorf("block %s: nil model constructor", spec.Name)
	}
	for _, t := range spec.Tables {
		if int(t) >= spec.Registers {
			return errors.Errorf("block %s: table register %d out of range", spec.Name, t)
		}
	}
	if p, ok := specsByType[spec.Type]; ok {
		return errors.Errorf("block type %#02x already registered as %s", spec.Type, p.Name)
	}
	if _, ok := specsByName[spec.Name]; ok {
		return errors.Errorf("block name %s already registered", spec.Name)
	}
	return nil
}

// Lookup returns the spec registered for the given block type id, or
// nil.
func Lookup(typ uint8) *BlockSpec { return specsByType[typ] }

// LookupName returns the spec registered under the given name, or nil.
func LookupName(name string) *BlockSpec { return specsByName[name] }

// Specs returns all registered block specs in ascending type id order.
func Specs() []*BlockSpec {
	out := make([]*BlockSpec, 0, len(specsByType))
	for _, s := range specsByType {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// RegFile is the register view handed to a model during a tick.
type RegFile struct {
	regs   []uint32
	tables map[uint8][]uint32
}

// Get returns the value of register reg, or 0 if reg is out of range.
func (f *RegFile) Get(reg uint8) uint32 {
	if int(reg) >= len(f.regs) {
		return 0
	}
	return f.regs[reg]
}

// Set sets register reg to v. Out of range registers are ignored.
func (f *RegFile) Set(reg uint8, v uint32) {
	if int(reg) < len(f.regs) {
		f.regs[reg] = v
	}
}

// Table returns the table backing register reg. The returned slice is
// shared with the register map and must not be mutated by the model.
func (f *RegFile) Table(reg uint8) []uint32 { return f.tables[reg] }
