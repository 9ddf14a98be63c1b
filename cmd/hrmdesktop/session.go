package main

import (
	"log/slog"

	"github.com/kyberias/HRMC/pkg/asm"
	"github.com/kyberias/HRMC/pkg/cpu"
)

// session is one run of a program that can be stepped and restarted.
type session struct {
	prog    []asm.Instruction
	input   []int
	memory  []int
	memSize int
	log     *slog.Logger

	vm      *cpu.CPU
	pending []int
	outbox  []int
	err     error
}

func newSession(prog []asm.Instruction, input, memory []int, memSize int, log *slog.Logger) (*session, error) {
	s := &session{prog: prog, input: input, memory: memory, memSize: memSize, log: log}
	if err := s.reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// reset reloads the program with the initial inbox and memory.
func (s *session) reset() error {
	opts := []cpu.Option{cpu.WithInbox(cpu.InboxFunc(s.next)), cpu.WithLogger(s.log)}
	if s.memSize > 0 {
		opts = append(opts, cpu.WithMemorySize(s.memSize))
	}
	opts = append(opts, cpu.WithMemory(s.memory))
	vm, err := cpu.New(s.prog, opts...)
	if err != nil {
		return err
	}
	s.vm = vm
	s.pending = append([]int(nil), s.input...)
	s.outbox = nil
	s.err = nil
	return nil
}

func (s *session) next() (int, bool) {
	if len(s.pending) == 0 {
		return 0, false
	}
	v := s.pending[0]
	s.pending = s.pending[1:]
	return v, true
}

// step executes one instruction and reports whether the machine can go on.
func (s *session) step() bool {
	if s.done() {
		return false
	}
	out, emitted, err := s.vm.Step()
	if err != nil {
		s.err = err
		s.log.Error("run failed", "err", err)
		return false
	}
	if emitted {
		s.outbox = append(s.outbox, out)
	}
	if s.vm.Halted() {
		s.log.Info("halted", "steps", s.vm.Steps(), "outputs", len(s.outbox))
		return false
	}
	return true
}

func (s *session) done() bool {
	return s.err != nil || s.vm.Halted()
}
