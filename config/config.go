// Package config loads the simulator's startup block configuration.
//
// The format is line oriented: one `NAME COUNT` pair per line, where
// NAME is a registered block type and COUNT its instance count. Blank
// lines and `#` comments are ignored. The configuration is resolved
// once at startup and immutable afterwards.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	pandasim "github.com/EmilioPeJu/panda-cocotb-based-simulation"
)

// Parse reads a block configuration. Every named block type must have
// been registered already.
func Parse(r io.Reader) (pandasim.Config, error) {
	var cfg pandasim.Config
	seen := make(map[uint8]bool)
	s := bufio.NewScanner(r)
	for line := 1; s.Scan(); line++ {
		text := s.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		if len(fields) != 2 {
			return cfg, errors.Errorf("line %d: want NAME COUNT, got %q", line, s.Text())
		}
		spec := pandasim.LookupName(fields[0])
		if spec == nil {
			return cfg, errors.Errorf("line %d: unknown block type %s", line, fields[0])
		}
		count, err := strconv.Atoi(fields[1])
		if err != nil || count < 1 || count > 256 {
			return cfg, errors.Errorf("line %d: bad instance count %s", line, fields[1])
		}
		if seen[spec.Type] {
			return cfg, errors.Errorf("line %d: duplicate block type %s", line, fields[0])
		}
		seen[spec.Type] = true
		cfg.Blocks = append(cfg.Blocks, pandasim.BlockCount{Type: spec.Type, Instances: count})
	}
	if err := s.Err(); err != nil {
		return cfg, errors.Wrap(err, "read configuration")
	}
	if len(cfg.Blocks) == 0 {
		return cfg, errors.New("empty block configuration")
	}
	return cfg, nil
}

// ParseFile reads a block configuration from a file.
func ParseFile(path string) (pandasim.Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return pandasim.Config{}, errors.Wrap(err, "open configuration")
	}
	defer f.Close()
	cfg, err := Parse(f)
	return cfg, errors.Wrapf(err, "%s", path)
}

// Default returns a configuration mounting one instance of every
// registered block type, in ascending type id order.
func Default() pandasim.Config {
	var cfg pandasim.Config
	for _, spec := range pandasim.Specs() {
		cfg.Blocks = append(cfg.Blocks, pandasim.BlockCount{Type: spec.Type, Instances: 1})
	}
	return cfg
}
