// Package config loads run files: a YAML description of which program to
// compile, what the inbox holds and how the floor is laid out.
//
//	source: exploder.c
//	input: [502, 358, 42, 6]
//	memory:
//	  size: 16
//	  cells: {9: 0, 10: 10, 11: 100}
//	max_steps: 100000
//	timeout: 2s
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Memory describes the initial floor.
type Memory struct {
	// Size is the number of cells; zero means the machine default.
	Size int `yaml:"size"`
	// Cells presets individual cells by address.
	Cells map[int]int `yaml:"cells"`
	// Image presets cells from address 0 onwards. Cells wins where both set a cell.
	Image []int `yaml:"image"`
}

// Config is one run file.
type Config struct {
	Source    string        `yaml:"source"`
	Input     []int         `yaml:"input"`
	Memory    Memory        `yaml:"memory"`
	Optimize  *bool         `yaml:"optimize"`
	ZeroNames []string      `yaml:"zero_names"`
	MaxSteps  int           `yaml:"max_steps"`
	Timeout   time.Duration `yaml:"timeout"`

	// Dir is the directory of the run file; relative paths resolve against it.
	Dir string `yaml:"-"`
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads and validates the run file at path.
func Load(path string) (*Config, error) {
	fullPath, parentDir, err := pathInfo(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Dir = parentDir
	return cfg, nil
}

// Parse decodes and validates a run file. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Memory.Size < 0 {
		return fmt.Errorf("%w: negative memory size %d", ErrInvalidConfig, c.Memory.Size)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: negative max_steps %d", ErrInvalidConfig, c.MaxSteps)
	}
	for addr := range c.Memory.Cells {
		if addr < 0 {
			return fmt.Errorf("%w: negative cell address %d", ErrInvalidConfig, addr)
		}
		if c.Memory.Size > 0 && addr >= c.Memory.Size {
			return fmt.Errorf("%w: cell %d outside memory of %d cells", ErrInvalidConfig, addr, c.Memory.Size)
		}
	}
	if c.Memory.Size > 0 && len(c.Memory.Image) > c.Memory.Size {
		return fmt.Errorf("%w: image of %d cells exceeds memory of %d", ErrInvalidConfig, len(c.Memory.Image), c.Memory.Size)
	}
	return nil
}

// SourcePath returns Source resolved against the run file's directory.
func (c *Config) SourcePath() string {
	if c.Source == "" || filepath.IsAbs(c.Source) || c.Dir == "" {
		return c.Source
	}
	return filepath.Join(c.Dir, c.Source)
}

// OptimizeEnabled reports whether the optimizer should run. It defaults to true.
func (c *Config) OptimizeEnabled() bool {
	return c.Optimize == nil || *c.Optimize
}

// MemoryImage returns the preset memory: Image overlaid with Cells, long
// enough to hold the highest preset cell. It returns nil when nothing is preset.
func (c *Config) MemoryImage() []int {
	n := len(c.Memory.Image)
	for addr := range c.Memory.Cells {
		n = max(n, addr+1)
	}
	if n == 0 {
		return nil
	}
	img := make([]int, n)
	copy(img, c.Memory.Image)
	for addr, v := range c.Memory.Cells {
		img[addr] = v
	}
	return img
}

// pathInfo returns the absolute path of relPath and its directory.
func pathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	return fullPath, filepath.Dir(fullPath), nil
}
