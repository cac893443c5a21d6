package blocks

import (
	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
)

// Pcap register layout.
const (
	PcapEnable = 0 // arm position capture
	PcapActive = 1 // reads 1 while armed and not done
	PcapDone   = 2 // write non-zero to end the capture stream
)

// TypePcap is the PCAP block type id.
const TypePcap uint8 = 0x03

func init() {
	pandasim.Register(&pandasim.BlockSpec{
		Name:      "PCAP",
		Type:      TypePcap,
		Registers: 3,
		New:       func() pandasim.Model { return &pcap{} },
	})
}

// pcap models the position-capture controller. Writing DONE ends the
// capture stream the way the hardware's pcap_done strobe does: already
// buffered words remain drainable, then readers see end-of-stream.
type pcap struct {
	done bool
}

func (m *pcap) Tick(t *pandasim.TickInfo, regs *pandasim.RegFile) ([]uint32, error) {
	if !m.done && regs.Get(PcapDone) != 0 {
		m.done = true
		t.EndCapture()
	}
	active := uint32(0)
	if !m.done && regs.Get(PcapEnable) != 0 {
		active = 1
	}
	regs.Set(PcapActive, active)
	return nil, nil
}
