// Package blocks provides the built-in block model library.
//
// Importing it (usually for side effect) registers every built-in block
// type with the pandasim registry.
//
package blocks

import (
	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
)

// Counter register layout.
const (
	CounterEnable  = 0 // count while non-zero
	CounterStart   = 1 // value loaded when enabled
	CounterStep    = 2 // increment per tick
	CounterMax     = 3 // wrap threshold, 0 for free-running
	CounterCapture = 4 // emit OUT as a capture word each counted tick
	CounterOut     = 5
	CounterCarry   = 6 // 1 on the tick the counter wrapped
)

// TypeCounter is the COUNTER block type id.
const TypeCounter uint8 = 0x05

func init() {
	pandasim.Register(&pandasim.BlockSpec{
		Name:      "COUNTER",
		Type:      TypeCounter,
		Registers: 7,
		New:       func() pandasim.Model { return &counter{} },
	})
}

// counter counts by STEP every tick while enabled, wrapping back to
// START past MAX.
type counter struct {
	wasEnabled bool
}

func (m *counter) Tick(t *pandasim.TickInfo, regs *pandasim.RegFile) ([]uint32, error) {
	enabled := regs.Get(CounterEnable) != 0
	if !enabled {
		m.wasEnabled = false
		regs.Set(CounterCarry, 0)
		return nil, nil
	}
	out := regs.Get(CounterOut)
	if !m.wasEnabled {
		// rising enable reloads the counter
		out = regs.Get(CounterStart)
		m.wasEnabled = true
	} else {
		out += regs.Get(CounterStep)
	}
	carry := uint32(0)
	if max := regs.Get(CounterMax); max != 0 && out > max {
		out = regs.Get(CounterStart)
		carry = 1
	}
	regs.Set(CounterOut, out)
	regs.Set(CounterCarry, carry)
	if regs.Get(CounterCapture) != 0 {
		return []uint32{out}, nil
	}
	return nil, nil
}
