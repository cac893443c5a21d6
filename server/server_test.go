package server_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/blocks"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/server"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/simtest"
)

func startServer(t *testing.T) (*pandasim.Simulator, string) {
	t.Helper()
	sim, err := pandasim.New(pandasim.Config{
		Blocks: []pandasim.BlockCount{
			{Type: blocks.TypeCounter, Instances: 1},
			{Type: blocks.TypePcap, Instances: 1},
		},
		TickPeriod: 5 * time.Millisecond,
	}, pandasim.NopLogger{})
	require.NoError(t, err)

	srv := server.New(sim, "127.0.0.1:0", pandasim.NopLogger{})
	require.NoError(t, srv.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return sim, srv.Addr().String()
}

func TestServe_writeTakesEffectWithinAPeriod(t *testing.T) {
	_, addr := startServer(t)
	c, err := simtest.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteReg(blocks.TypeCounter, 0, blocks.CounterStart, 3))
	require.Eventually(t, func() bool {
		v, err := c.ReadReg(blocks.TypeCounter, 0, blocks.CounterStart)
		return err == nil && v == 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServe_counterCaptureStream(t *testing.T) {
	_, addr := startServer(t)
	c, err := simtest.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteReg(blocks.TypeCounter, 0, blocks.CounterStep, 1))
	require.NoError(t, c.WriteReg(blocks.TypeCounter, 0, blocks.CounterCapture, 1))
	require.NoError(t, c.WriteReg(blocks.TypeCounter, 0, blocks.CounterEnable, 1))

	// the counter emits its OUT value every enabled tick: the stream
	// must come back gapless and in order
	var got []uint32
	require.Eventually(t, func() bool {
		words, end, err := c.ReadData(64)
		require.NoError(t, err)
		require.False(t, end)
		got = append(got, words...)
		return len(got) >= 10
	}, 5*time.Second, time.Millisecond)

	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1]+1, got[i], "gap in captured sequence at %d", i)
	}
}

func TestServe_endOfStreamAfterDone(t *testing.T) {
	_, addr := startServer(t)
	c, err := simtest.Dial(addr)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.WriteReg(blocks.TypePcap, 0, blocks.PcapDone, 1))
	require.Eventually(t, func() bool {
		_, end, err := c.ReadData(64)
		require.NoError(t, err)
		return end
	}, 2*time.Second, 5*time.Millisecond)
}

func TestServe_connectionsAreIndependent(t *testing.T) {
	_, addr := startServer(t)

	bad, err := simtest.Dial(addr)
	require.NoError(t, err)
	defer bad.Close()
	good, err := simtest.Dial(addr)
	require.NoError(t, err)
	defer good.Close()

	// kill the first connection with an invalid address
	_, err = bad.ReadReg(0x55, 0, 0)
	require.Error(t, err)

	// the second connection is unaffected
	v, err := good.ReadReg(blocks.TypeCounter, 0, blocks.CounterOut)
	require.NoError(t, err)
	require.Equal(t, uint32(0), v)
}
