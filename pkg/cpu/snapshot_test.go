package cpu

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/kyberias/HRMC/pkg/asm"
)

const storeEchoProgram = `
a:
    INBOX
    COPYTO 0
    OUTBOX
    JUMP a
`

func TestSnapshotResumesRun(t *testing.T) {
	c1, err := New(asm.MustParse(storeEchoProgram), WithInbox(SliceInbox([]int{1, 2, 3})), WithStepLimit(50))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for v, err := range c1.Outputs(context.Background()) {
		if err != nil || v != 1 {
			t.Fatalf("first output: got %d, %v", v, err)
		}
		break
	}

	data, err := c1.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}

	c2, err := Restore(data, WithInbox(SliceInbox([]int{2, 3})))
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if c2.PC() != c1.PC() {
		t.Errorf("PC: got %d, want %d", c2.PC(), c1.PC())
	}
	if c2.Steps() != c1.Steps() {
		t.Errorf("Steps: got %d, want %d", c2.Steps(), c1.Steps())
	}
	if !reflect.DeepEqual(c2.Program(), c1.Program()) {
		t.Errorf("Program mismatch:\n%s\nwant:\n%s", asm.Format(c2.Program()), asm.Format(c1.Program()))
	}
	if _, ok := c2.Accumulator(); ok {
		t.Error("accumulator should be empty after OUTBOX")
	}

	out, err := c2.RunContext(context.Background())
	if err != nil {
		t.Fatalf("RunContext: %v", err)
	}
	if !reflect.DeepEqual(out, []int{2, 3}) {
		t.Errorf("outputs: got %v, want [2 3]", out)
	}
	if got := c2.Memory()[0]; got != 3 {
		t.Errorf("mem[0]: got %d, want 3", got)
	}
}

func TestSnapshotKeepsAccumulator(t *testing.T) {
	c1, err := New(asm.MustParse(storeEchoProgram), WithInbox(SliceInbox([]int{-4})))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c1.Step() // label
	c1.Step() // INBOX

	path := filepath.Join(t.TempDir(), "vm.zip")
	if err := c1.SnapshotToFile(path); err != nil {
		t.Fatalf("SnapshotToFile: %v", err)
	}
	c2, err := RestoreFromFile(path)
	if err != nil {
		t.Fatalf("RestoreFromFile: %v", err)
	}
	acc, ok := c2.Accumulator()
	if !ok || acc != -4 {
		t.Errorf("Accumulator: got %d, %v; want -4, true", acc, ok)
	}
	if c2.Halted() {
		t.Error("restored CPU should not be halted")
	}
}

func TestRestoreRejectsGarbage(t *testing.T) {
	if _, err := Restore([]byte("not a zip")); err == nil {
		t.Error("expected error for non-zip data")
	}
}
