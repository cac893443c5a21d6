package blocks

import (
	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
)

// Pulse register layout.
const (
	PulseEnable = 0 // run while non-zero
	PulseDelay  = 1 // ticks of low output at the start of each period
	PulseWidth  = 2 // ticks of high output after the delay
	PulseOut    = 3
)

// TypePulse is the PULSE block type id.
const TypePulse uint8 = 0x01

func init() {
	pandasim.Register(&pandasim.BlockSpec{
		Name:      "PULSE",
		Type:      TypePulse,
		Registers: 4,
		New:       func() pandasim.Model { return &pulse{} },
	})
}

// pulse generates a repeating pulse train: DELAY low ticks followed by
// WIDTH high ticks. Disabling resets the phase.
type pulse struct {
	phase uint32
}

func (m *pulse) Tick(t *pandasim.TickInfo, regs *pandasim.RegFile) ([]uint32, error) {
	if regs.Get(PulseEnable) == 0 {
		m.phase = 0
		regs.Set(PulseOut, 0)
		return nil, nil
	}
	delay, width := regs.Get(PulseDelay), regs.Get(PulseWidth)
	period := delay + width
	if period == 0 {
		regs.Set(PulseOut, 0)
		return nil, nil
	}
	out := uint32(0)
	if m.phase >= delay {
		out = 1
	}
	regs.Set(PulseOut, out)
	m.phase++
	if m.phase >= period {
		m.phase = 0
	}
	return nil, nil
}
