package blocks

import (
	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
)

// Seq register layout.
const (
	SeqEnable  = 0 // replay while non-zero
	SeqRepeat  = 1 // ticks to hold each entry, 0 means 1
	SeqOut     = 2 // current table entry
	SeqIndex   = 3 // current entry index
	SeqCapture = 4 // emit OUT as a capture word each replayed tick
	SeqTable   = 5 // table register; its scalar cell reads back the length
)

// TypeSeq is the SEQ block type id.
const TypeSeq uint8 = 0x02

func init() {
	pandasim.Register(&pandasim.BlockSpec{
		Name:      "SEQ",
		Type:      TypeSeq,
		Registers: 6,
		Tables:    []uint8{SeqTable},
		New:       func() pandasim.Model { return &seq{} },
	})
}

// seq replays its table one entry at a time, holding each entry for
// REPEAT ticks and wrapping at the end. Replacing the table restarts
// the replay from entry 0.
type seq struct {
	table []uint32 // table seen last tick, for replacement detection
	index uint32
	held  uint32
}

func (m *seq) Tick(t *pandasim.TickInfo, regs *pandasim.RegFile) ([]uint32, error) {
	table := regs.Table(SeqTable)
	regs.Set(SeqTable, uint32(len(table)))
	if !sameTable(table, m.table) {
		m.table = table
		m.index, m.held = 0, 0
	}
	if regs.Get(SeqEnable) == 0 || len(table) == 0 {
		regs.Set(SeqOut, 0)
		regs.Set(SeqIndex, 0)
		m.index, m.held = 0, 0
		return nil, nil
	}
	if m.index >= uint32(len(table)) {
		m.index = 0
	}
	out := table[m.index]
	regs.Set(SeqOut, out)
	regs.Set(SeqIndex, m.index)

	repeat := regs.Get(SeqRepeat)
	if repeat == 0 {
		repeat = 1
	}
	m.held++
	if m.held >= repeat {
		m.held = 0
		m.index++
		if m.index >= uint32(len(table)) {
			m.index = 0
		}
	}
	if regs.Get(SeqCapture) != 0 {
		return []uint32{out}, nil
	}
	return nil, nil
}

// sameTable reports whether two tables are the same committed slice.
// Table replacement swaps the backing array, so identity is enough.
func sameTable(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	return len(a) == 0 || &a[0] == &b[0]
}
