package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kyberias/HRMC/pkg/config"
)

// settings is the run file with command line overrides applied.
type settings struct {
	source    string
	input     []int
	memory    []int
	memSize   int
	optimize  bool
	zeroNames []string
	maxSteps  int
	timeout   time.Duration
}

func loadSettings(path string) (*settings, error) {
	if path == "" {
		return &settings{optimize: true}, nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return &settings{
		source:    cfg.SourcePath(),
		input:     cfg.Input,
		memory:    cfg.MemoryImage(),
		memSize:   cfg.Memory.Size,
		optimize:  cfg.OptimizeEnabled(),
		zeroNames: cfg.ZeroNames,
		maxSteps:  cfg.MaxSteps,
		timeout:   cfg.Timeout,
	}, nil
}

// override applies the flags named in set.
func (s *settings) override(set map[string]bool, in, input, memory string, memSize int, noOpt bool, maxSteps int, timeout time.Duration) error {
	var err error
	if set["in"] {
		s.source = in
	}
	if set["input"] {
		if s.input, err = parseInts(input); err != nil {
			return fmt.Errorf("-input: %w", err)
		}
	}
	if set["memory"] {
		if s.memory, err = parseCells(memory); err != nil {
			return fmt.Errorf("-memory: %w", err)
		}
	}
	if set["mem-size"] {
		s.memSize = memSize
	}
	if noOpt {
		s.optimize = false
	}
	if set["max-steps"] {
		s.maxSteps = maxSteps
	}
	if set["timeout"] {
		s.timeout = timeout
	}
	if s.memSize < 0 || s.maxSteps < 0 {
		return fmt.Errorf("-mem-size and -max-steps must not be negative")
	}
	if s.memSize > 0 && len(s.memory) > s.memSize {
		return fmt.Errorf("memory presets reach cell %d of a %d cell floor", len(s.memory)-1, s.memSize)
	}
	return nil
}

// parseInts parses "1, 2,3". An empty string is an empty inbox.
func parseInts(text string) ([]int, error) {
	var out []int
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.Atoi(field)
		if err != nil {
			return nil, fmt.Errorf("bad value %q", field)
		}
		out = append(out, v)
	}
	return out, nil
}

// parseCells parses "9=0,10=10" into a memory image.
func parseCells(text string) ([]int, error) {
	cells := make(map[int]int)
	size := 0
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		addrText, valueText, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("bad preset %q, want addr=value", field)
		}
		addr, err := strconv.Atoi(strings.TrimSpace(addrText))
		if err != nil || addr < 0 {
			return nil, fmt.Errorf("bad address in %q", field)
		}
		v, err := strconv.Atoi(strings.TrimSpace(valueText))
		if err != nil {
			return nil, fmt.Errorf("bad value in %q", field)
		}
		cells[addr] = v
		size = max(size, addr+1)
	}
	if size == 0 {
		return nil, nil
	}
	image := make([]int, size)
	for addr, v := range cells {
		image[addr] = v
	}
	return image, nil
}
