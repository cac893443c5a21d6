package config_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/blocks"
	"github.com/EmilioPeJu/panda-cocotb-based-simulation/config"
)

func TestParse(t *testing.T) {
	cfg, err := config.Parse(strings.NewReader(`
# control blocks
PULSE 2
COUNTER 4   # four counters
SEQ 1
PCAP 1
`))
	if err != nil {
		t.Fatal(err)
	}
	want := []pandasim.BlockCount{
		{Type: blocks.TypePulse, Instances: 2},
		{Type: blocks.TypeCounter, Instances: 4},
		{Type: blocks.TypeSeq, Instances: 1},
		{Type: blocks.TypePcap, Instances: 1},
	}
	if diff := cmp.Diff(want, cfg.Blocks); diff != "" {
		t.Fatalf("parsed blocks (-want +got):\n%s", diff)
	}
}

func TestParse_errors(t *testing.T) {
	inputs := map[string]string{
		"unknown block":   "NOSUCH 1",
		"bad count":       "PULSE zero",
		"zero count":      "PULSE 0",
		"missing count":   "PULSE",
		"duplicate block": "PULSE 1\nPULSE 2",
		"empty":           "# nothing here\n",
	}
	for name, in := range inputs {
		if _, err := config.Parse(strings.NewReader(in)); err == nil {
			t.Errorf("%s: no error for %q", name, in)
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if len(cfg.Blocks) == 0 {
		t.Fatal("default configuration is empty")
	}
	if _, err := pandasim.New(cfg, pandasim.NopLogger{}); err != nil {
		t.Fatalf("default configuration does not build: %v", err)
	}
}
