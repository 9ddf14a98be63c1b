package cpu

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/kyberias/HRMC/pkg/asm"
)

// machineState is the JSON form of everything a CPU holds besides its
// program and input.
type machineState struct {
	PC          int   `json:"pc"`
	Accumulator *int  `json:"accumulator"`
	Halted      bool  `json:"halted"`
	Steps       int   `json:"steps"`
	StepLimit   int   `json:"step_limit,omitempty"`
	Memory      []int `json:"memory"`
}

// Snapshot serialises the machine into a ZIP archive holding cpu_state.json
// and the program listing in program.asm.
func (c *CPU) Snapshot() ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		PC:        c.pc,
		Halted:    c.halted,
		Steps:     c.steps,
		StepLimit: c.stepLimit,
		Memory:    c.Memory(),
	}
	if c.hasAcc {
		acc := c.acc
		state.Accumulator = &acc
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal cpu_state: %w", err)
	}
	if err := writeZipEntry(zw, "cpu_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := writeZipEntry(zw, "program.asm", []byte(asm.Format(c.prog))); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore rebuilds a CPU from an archive produced by Snapshot. opts supply
// what a snapshot does not carry, such as the inbox and logger; the saved
// memory replaces any memory options.
func Restore(data []byte, opts ...Option) (*CPU, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	fileMap := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileMap[f.Name] = f
	}

	jsonData, err := readZipEntry(fileMap, "cpu_state.json")
	if err != nil {
		return nil, err
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return nil, fmt.Errorf("unmarshal cpu_state: %w", err)
	}

	listing, err := readZipEntry(fileMap, "program.asm")
	if err != nil {
		return nil, err
	}
	prog, err := asm.Parse(string(listing))
	if err != nil {
		return nil, fmt.Errorf("parse program.asm: %w", err)
	}

	c, err := New(prog, append([]Option{WithStepLimit(state.StepLimit)}, opts...)...)
	if err != nil {
		return nil, err
	}
	c.pc = state.PC
	c.halted = state.Halted
	c.steps = state.Steps
	c.mem = append([]int(nil), state.Memory...)
	if state.Accumulator != nil {
		c.acc, c.hasAcc = *state.Accumulator, true
	}
	return c, nil
}

// SnapshotToFile writes the snapshot archive to path.
func (c *CPU) SnapshotToFile(path string) error {
	data, err := c.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a snapshot archive from path.
func RestoreFromFile(path string, opts ...Option) (*CPU, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Restore(data, opts...)
}

func writeZipEntry(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create zip entry %q: %w", name, err)
	}
	_, err = w.Write(data)
	return err
}

func readZipEntry(fileMap map[string]*zip.File, name string) ([]byte, error) {
	f, ok := fileMap[name]
	if !ok {
		return nil, fmt.Errorf("zip entry %q not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open zip entry %q: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
