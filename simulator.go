package pandasim

import (
	"context"
	"time"
)

// BlockCount configures how many instances of one block type to mount.
type BlockCount struct {
	Type      uint8
	Instances int
}

// Config is the immutable startup configuration of a simulator: which
// block types to mount, with how many instances, and the tick cadence.
type Config struct {
	Blocks     []BlockCount
	TickPeriod time.Duration
}

// Simulator bundles the register map, the capture buffer and the clock
// into one running simulation. It is the single object the protocol
// server dispatches to.
type Simulator struct {
	Registers *RegisterMap
	Capture   *CaptureBuffer
	Clock     *Clock
}

// New builds a simulator from cfg. Every block type in cfg must be
// registered; the blocks package registers the built-in library.
func New(cfg Config, log Logger) (*Simulator, error) {
	rm, err := NewRegisterMap(cfg)
	if err != nil {
		return nil, err
	}
	buf := NewCaptureBuffer()
	return &Simulator{
		Registers: rm,
		Capture:   buf,
		Clock:     NewClock(rm, buf, cfg.TickPeriod, log),
	}, nil
}

// Run ticks the simulation until ctx is canceled.
func (s *Simulator) Run(ctx context.Context) error {
	return s.Clock.Run(ctx)
}

// Close marks the simulation's end condition: the capture stream is
// closed and, once drained, reports end-of-stream.
func (s *Simulator) Close() {
	s.Capture.Close()
}
