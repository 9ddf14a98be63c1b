// Package cpu interprets accumulator machine programs.
package cpu

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/kyberias/HRMC/pkg/asm"
)

// DefaultMemorySize is the number of memory cells when no option says otherwise.
const DefaultMemorySize = 100

var (
	ErrEmptyAccumulator = errors.New("accumulator is empty")
	ErrMemoryOutOfRange = errors.New("memory address out of range")
	ErrStepLimit        = errors.New("step limit exceeded")
	ErrUndefinedLabel   = errors.New("undefined label")
	ErrDuplicateLabel   = errors.New("duplicate label")
)

// Fault is a run-time error raised by the instruction at PC.
type Fault struct {
	PC          int
	Instruction asm.Instruction
	Err         error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("pc %d (%s): %v", f.PC, f.Instruction, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// CPU is one machine: program, accumulator, memory and input.
// It is not safe for concurrent use.
type CPU struct {
	prog   []asm.Instruction
	labels map[string]int

	mem    []int
	acc    int
	hasAcc bool
	pc     int
	halted bool
	steps  int

	stepLimit int
	inbox     Inbox
	log       *slog.Logger
}

// Option configures New.
type Option func(*CPU)

// WithMemory presets memory from image. Memory grows to fit the image.
func WithMemory(image []int) Option {
	return func(c *CPU) {
		if len(image) > len(c.mem) {
			c.mem = append(c.mem, make([]int, len(image)-len(c.mem))...)
		}
		copy(c.mem, image)
	}
}

// WithMemorySize sets the number of cells. Cells beyond the new size are
// dropped, so apply it before WithMemory.
func WithMemorySize(n int) Option {
	return func(c *CPU) {
		mem := make([]int, n)
		copy(mem, c.mem)
		c.mem = mem
	}
}

// WithInbox sets the input source. Without it INBOX halts immediately.
func WithInbox(in Inbox) Option {
	return func(c *CPU) { c.inbox = in }
}

// WithLogger receives DEBUG instructions.
func WithLogger(l *slog.Logger) Option {
	return func(c *CPU) { c.log = l }
}

// WithStepLimit faults with ErrStepLimit once n instructions have executed.
// Zero means no limit.
func WithStepLimit(n int) Option {
	return func(c *CPU) { c.stepLimit = n }
}

// New resolves the labels of prog and returns a CPU ready to run it.
func New(prog []asm.Instruction, opts ...Option) (*CPU, error) {
	c := &CPU{
		prog:   prog,
		labels: make(map[string]int),
		mem:    make([]int, DefaultMemorySize),
		inbox:  SliceInbox(nil),
		log:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	for i, ins := range prog {
		if ins.Op != asm.Label {
			continue
		}
		if _, dup := c.labels[ins.Target]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateLabel, ins.Target)
		}
		c.labels[ins.Target] = i
	}
	for _, ins := range prog {
		if ins.Op.IsJump() {
			if _, ok := c.labels[ins.Target]; !ok {
				return nil, fmt.Errorf("%w: %s", ErrUndefinedLabel, ins.Target)
			}
		}
	}
	return c, nil
}

// PC returns the index of the next instruction.
func (c *CPU) PC() int { return c.pc }

// Accumulator returns the accumulator and whether it holds a value.
func (c *CPU) Accumulator() (int, bool) { return c.acc, c.hasAcc }

// Halted reports whether the program ran off its end or INBOX found no input.
func (c *CPU) Halted() bool { return c.halted }

// Steps returns the number of instructions executed so far.
func (c *CPU) Steps() int { return c.steps }

// Program returns the program being run.
func (c *CPU) Program() []asm.Instruction { return c.prog }

// Memory returns a copy of memory.
func (c *CPU) Memory() []int {
	return append([]int(nil), c.mem...)
}

// Step executes one instruction. emitted is true when it was an OUTBOX, with
// the value in out. A faulting step changes nothing; stepping a halted CPU
// does nothing.
func (c *CPU) Step() (out int, emitted bool, err error) {
	if c.halted {
		return 0, false, nil
	}
	if c.pc < 0 || c.pc >= len(c.prog) {
		c.halted = true
		return 0, false, nil
	}
	ins := c.prog[c.pc]
	fault := func(err error) (int, bool, error) {
		return 0, false, &Fault{PC: c.pc, Instruction: ins, Err: err}
	}
	if c.stepLimit > 0 && c.steps >= c.stepLimit {
		return fault(ErrStepLimit)
	}

	next := c.pc + 1
	switch ins.Op {
	case asm.Label:

	case asm.Inbox:
		v, ok := c.inbox.Next()
		if !ok {
			c.halted = true
			c.steps++
			return 0, false, nil
		}
		c.acc, c.hasAcc = v, true

	case asm.Outbox:
		if !c.hasAcc {
			return fault(ErrEmptyAccumulator)
		}
		out, emitted = c.acc, true
		c.hasAcc = false

	case asm.CopyFrom, asm.CopyFromIndirect:
		a, err := c.address(ins)
		if err != nil {
			return fault(err)
		}
		c.acc, c.hasAcc = c.mem[a], true

	case asm.CopyTo, asm.CopyToIndirect:
		if !c.hasAcc {
			return fault(ErrEmptyAccumulator)
		}
		a, err := c.address(ins)
		if err != nil {
			return fault(err)
		}
		c.mem[a] = c.acc

	case asm.Add, asm.Sub, asm.SubIndirect:
		if !c.hasAcc {
			return fault(ErrEmptyAccumulator)
		}
		a, err := c.address(ins)
		if err != nil {
			return fault(err)
		}
		if ins.Op == asm.Add {
			c.acc += c.mem[a]
		} else {
			c.acc -= c.mem[a]
		}

	case asm.BumpUp, asm.BumpDown, asm.BumpUpIndirect, asm.BumpDownIndirect:
		a, err := c.address(ins)
		if err != nil {
			return fault(err)
		}
		if ins.Op == asm.BumpUp || ins.Op == asm.BumpUpIndirect {
			c.mem[a]++
		} else {
			c.mem[a]--
		}
		c.acc, c.hasAcc = c.mem[a], true

	case asm.Jump:
		next = c.labels[ins.Target]

	case asm.JumpIfZero, asm.JumpIfNegative:
		if !c.hasAcc {
			return fault(ErrEmptyAccumulator)
		}
		if (ins.Op == asm.JumpIfZero && c.acc == 0) || (ins.Op == asm.JumpIfNegative && c.acc < 0) {
			next = c.labels[ins.Target]
		}

	case asm.Debug:
		attrs := []any{"value", ins.Operand, "pc", c.pc}
		if c.hasAcc {
			attrs = append(attrs, "acc", c.acc)
		}
		c.log.Info("debug", attrs...)

	default:
		return fault(fmt.Errorf("unknown opcode %d", int(ins.Op)))
	}

	c.pc = next
	c.steps++
	return out, emitted, nil
}

// address resolves the cell ins refers to, following one level of
// indirection for the indirect forms.
func (c *CPU) address(ins asm.Instruction) (int, error) {
	a := ins.Operand
	if a < 0 || a >= len(c.mem) {
		return 0, fmt.Errorf("%w: %d", ErrMemoryOutOfRange, a)
	}
	if !ins.Op.IsIndirect() {
		return a, nil
	}
	p := c.mem[a]
	if p < 0 || p >= len(c.mem) {
		return 0, fmt.Errorf("%w: [%d] = %d", ErrMemoryOutOfRange, a, p)
	}
	return p, nil
}

// Outputs runs the CPU and yields each OUTBOX value as it is produced. The
// sequence ends when the CPU halts, ctx is done, or a step faults; the last
// two are yielded as an error. Breaking out of the loop leaves the CPU
// paused where it was.
func (c *CPU) Outputs(ctx context.Context) iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		for !c.halted {
			if err := ctx.Err(); err != nil {
				yield(0, err)
				return
			}
			out, emitted, err := c.Step()
			if err != nil {
				yield(0, err)
				return
			}
			if emitted && !yield(out, nil) {
				return
			}
		}
	}
}

// RunContext runs until the CPU halts and returns everything it output.
// On error the outputs produced so far are returned with it.
func (c *CPU) RunContext(ctx context.Context) ([]int, error) {
	var outs []int
	for v, err := range c.Outputs(ctx) {
		if err != nil {
			return outs, err
		}
		outs = append(outs, v)
	}
	return outs, nil
}

// Run executes prog against input with an optional memory image and returns
// its outputs.
func Run(prog []asm.Instruction, input []int, memory []int) ([]int, error) {
	c, err := New(prog, WithMemory(memory), WithInbox(SliceInbox(input)))
	if err != nil {
		return nil, err
	}
	return c.RunContext(context.Background())
}
