package pandasim

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// DefaultTickPeriod is the nominal simulation tick cadence (10 Hz).
const DefaultTickPeriod = 100 * time.Millisecond

// Clock drives the simulation forward in discrete ticks.
//
// A tick boundary fires on a periodic timer, or early as soon as a
// register or table write is queued; the early wake bounds the
// input-to-effect latency without ever replacing the guaranteed
// periodic tick. At each boundary queued writes are committed, every
// instance is advanced exactly once in ascending address order, and the
// capture words produced are appended to the capture buffer in that
// same order.
//
type Clock struct {
	rm     *RegisterMap
	buf    *CaptureBuffer
	period time.Duration
	log    Logger

	n uint64 // tick counter, guarded by rm.mu
}

// NewClock returns a clock ticking the given register map at the given
// period (DefaultTickPeriod if period <= 0).
func NewClock(rm *RegisterMap, buf *CaptureBuffer, period time.Duration, log Logger) *Clock {
	if period <= 0 {
		period = DefaultTickPeriod
	}
	if log == nil {
		log = NopLogger{}
	}
	return &Clock{rm: rm, buf: buf, period: period, log: log}
}

// Ticks returns the number of completed ticks.
func (c *Clock) Ticks() uint64 {
	c.rm.mu.RLock()
	defer c.rm.mu.RUnlock()
	return c.n
}

// Run ticks until ctx is canceled and returns ctx.Err(). Run is the
// only goroutine firing boundaries, so a wake from the write queue
// always finds the previous tick fully settled.
func (c *Clock) Run(ctx context.Context) error {
	t := time.NewTimer(c.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		case <-c.rm.Dirty():
			if !t.Stop() {
				<-t.C
			}
		}
		c.TickOnce()
		t.Reset(c.period)
	}
}

// TickOnce fires one tick boundary. The register map lock is held for
// the whole boundary, so reads observe either the previous or the new
// tick, never a tick in progress, and no instance can lag behind
// another.
func (c *Clock) TickOnce() {
	c.rm.mu.Lock()
	defer c.rm.mu.Unlock()

	c.rm.applyPending()
	c.n++
	ti := &TickInfo{N: c.n}

	var captured []uint32
	for _, inst := range c.rm.order {
		words, err := c.advance(inst, ti)
		if err != nil {
			if inst.fault == nil {
				c.log.Logf(SeverityError, "tick %d: %s.%d fault: %v",
					c.n, inst.Spec.Name, inst.Addr.Num, err)
			}
			inst.fault = err
			continue
		}
		if inst.fault != nil {
			c.log.Logf(SeverityInfo, "tick %d: %s.%d recovered",
				c.n, inst.Spec.Name, inst.Addr.Num)
			inst.fault = nil
		}
		captured = append(captured, words...)
	}
	if len(captured) > 0 {
		c.buf.Append(captured...)
	}
	if ti.endCapture {
		c.buf.Close()
	}
}

// advance runs one model tick against a scratch copy of the instance's
// register file, committing it only on success so a faulted instance
// keeps its last-known-good registers. Panics in a model are contained
// and reported as tick errors.
func (c *Clock) advance(inst *Instance, ti *TickInfo) (words []uint32, err error) {
	defer func() {
		if r := recover(); r != nil {
			words, err = nil, errors.Errorf("model panic: %v", r)
		}
	}()
	scratch := RegFile{
		regs:   append([]uint32(nil), inst.regs...),
		tables: inst.tables,
	}
	words, err = inst.model.Tick(ti, &scratch)
	if err != nil {
		return nil, errors.Wrapf(err, "%s.%d", inst.Spec.Name, inst.Addr.Num)
	}
	copy(inst.regs, scratch.regs)
	return words, nil
}
