package pandasim_test

import (
	"testing"
	"time"

	"github.com/pkg/errors"

	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
)

// Stub block used by the engine tests. Its behavior is driven entirely
// by its own registers so tests can steer it through protocol-level
// writes alone.
const (
	tbMode    = 0 // 0 ticks normally, 1 fails, 2 panics
	tbIn      = 1 // copied to tbOut every successful tick
	tbOut     = 2
	tbTicks   = 3 // increments every successful tick
	tbCapture = 4 // emit tbIn as a capture word while non-zero
	tbTable   = 5 // table register; scalar cell reads back the length
)

const typeTest uint8 = 0x7E

type testBlock struct{}

func (m *testBlock) Tick(t *pandasim.TickInfo, regs *pandasim.RegFile) ([]uint32, error) {
	switch regs.Get(tbMode) {
	case 1:
		return nil, errors.New("forced tick failure")
	case 2:
		panic("forced tick panic")
	}
	regs.Set(tbOut, regs.Get(tbIn))
	regs.Set(tbTicks, regs.Get(tbTicks)+1)
	regs.Set(tbTable, uint32(len(regs.Table(tbTable))))
	if regs.Get(tbCapture) != 0 {
		return []uint32{regs.Get(tbIn)}, nil
	}
	return nil, nil
}

func init() {
	pandasim.Register(&pandasim.BlockSpec{
		Name:      "TEST",
		Type:      typeTest,
		Registers: 6,
		Tables:    []uint8{tbTable},
		New:       func() pandasim.Model { return &testBlock{} },
	})
}

func newSim(t *testing.T, instances int) *pandasim.Simulator {
	t.Helper()
	sim, err := pandasim.New(pandasim.Config{
		Blocks:     []pandasim.BlockCount{{Type: typeTest, Instances: instances}},
		TickPeriod: time.Hour, // ticked manually
	}, pandasim.NopLogger{})
	if err != nil {
		t.Fatal(err)
	}
	return sim
}

func TestRegisterMap_invalidAddresses(t *testing.T) {
	sim := newSim(t, 2)
	rm := sim.Registers

	if _, err := rm.Read(0x55, 0, 0); errors.Cause(err) != pandasim.ErrInvalidAddress {
		t.Fatalf("unknown block type: got %v", err)
	}
	if _, err := rm.Read(typeTest, 2, 0); errors.Cause(err) != pandasim.ErrInvalidAddress {
		t.Fatalf("unknown instance: got %v", err)
	}
	if _, err := rm.Read(typeTest, 0, 6); errors.Cause(err) != pandasim.ErrInvalidAddress {
		t.Fatalf("register out of range: got %v", err)
	}
	if err := rm.Write(0x55, 0, 0, 1); errors.Cause(err) != pandasim.ErrInvalidAddress {
		t.Fatalf("write to unknown block: got %v", err)
	}
	if err := rm.WriteTable(typeTest, 0, tbOut, nil); errors.Cause(err) != pandasim.ErrInvalidAddress {
		t.Fatalf("table write to scalar register: got %v", err)
	}
}

func TestRegisterMap_writeAppliesAtBoundary(t *testing.T) {
	sim := newSim(t, 1)
	rm := sim.Registers

	if err := rm.Write(typeTest, 0, tbIn, 42); err != nil {
		t.Fatal(err)
	}
	v, err := rm.Read(typeTest, 0, tbIn)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("write visible before tick boundary: got %d", v)
	}
	sim.Clock.TickOnce()
	if v, _ = rm.Read(typeTest, 0, tbIn); v != 42 {
		t.Fatalf("after tick: tbIn = %d, want 42", v)
	}
	if v, _ = rm.Read(typeTest, 0, tbOut); v != 42 {
		t.Fatalf("after tick: tbOut = %d, want 42", v)
	}
}

func TestRegisterMap_writesCoalesce(t *testing.T) {
	sim := newSim(t, 1)
	rm := sim.Registers

	for _, v := range []uint32{1, 2, 3} {
		if err := rm.Write(typeTest, 0, tbIn, v); err != nil {
			t.Fatal(err)
		}
	}
	sim.Clock.TickOnce()
	if v, _ := rm.Read(typeTest, 0, tbIn); v != 3 {
		t.Fatalf("coalesced write: got %d, want 3 (last write wins)", v)
	}
}

func TestRegisterMap_tableReplacement(t *testing.T) {
	sim := newSim(t, 1)
	rm := sim.Registers

	if err := rm.WriteTable(typeTest, 0, tbTable, []uint32{1, 2, 3}); err != nil {
		t.Fatal(err)
	}
	sim.Clock.TickOnce()
	if v, _ := rm.Read(typeTest, 0, tbTable); v != 3 {
		t.Fatalf("table length readback: got %d, want 3", v)
	}

	// empty replacement clears the table
	if err := rm.WriteTable(typeTest, 0, tbTable, nil); err != nil {
		t.Fatal(err)
	}
	sim.Clock.TickOnce()
	if v, _ := rm.Read(typeTest, 0, tbTable); v != 0 {
		t.Fatalf("cleared table length readback: got %d, want 0", v)
	}

	tab, err := rm.Table(typeTest, 0, tbTable)
	if err != nil {
		t.Fatal(err)
	}
	if len(tab) != 0 {
		t.Fatalf("cleared table: got %v", tab)
	}
}
