// Package asm models the instruction set of the accumulator machine and
// converts between instruction lists and their textual listing form.
package asm

import (
	"fmt"
	"strings"
)

// Opcode identifies one machine instruction.
type Opcode int

const (
	Label Opcode = iota
	CopyFrom
	CopyTo
	CopyFromIndirect
	CopyToIndirect
	Add
	Sub
	SubIndirect
	BumpUp
	BumpDown
	BumpUpIndirect
	BumpDownIndirect
	Jump
	JumpIfZero
	JumpIfNegative
	Inbox
	Outbox
	Debug
)

// mnemonics holds the listing spelling of every opcode except Label.
var mnemonics = [...]string{
	Label:            "",
	CopyFrom:         "COPYFROM",
	CopyTo:           "COPYTO",
	CopyFromIndirect: "COPYFROM",
	CopyToIndirect:   "COPYTO",
	Add:              "ADD",
	Sub:              "SUB",
	SubIndirect:      "SUB",
	BumpUp:           "BUMPUP",
	BumpDown:         "BUMPDN",
	BumpUpIndirect:   "BUMPUP",
	BumpDownIndirect: "BUMPDN",
	Jump:             "JUMP",
	JumpIfZero:       "JUMPZ",
	JumpIfNegative:   "JUMPN",
	Inbox:            "INBOX",
	Outbox:           "OUTBOX",
	Debug:            "DEBUG",
}

// Mnemonic returns the listing spelling of op.
func (op Opcode) Mnemonic() string {
	if op < 0 || int(op) >= len(mnemonics) {
		return fmt.Sprintf("Opcode(%d)", int(op))
	}
	return mnemonics[op]
}

func (op Opcode) String() string {
	if op == Label {
		return "LABEL"
	}
	return op.Mnemonic()
}

// IsJump reports whether op transfers control to a label.
func (op Opcode) IsJump() bool {
	return op == Jump || op == JumpIfZero || op == JumpIfNegative
}

// IsIndirect reports whether the operand of op is dereferenced once more.
func (op Opcode) IsIndirect() bool {
	switch op {
	case CopyFromIndirect, CopyToIndirect, SubIndirect, BumpUpIndirect, BumpDownIndirect:
		return true
	}
	return false
}

// HasAddress reports whether op takes a memory address operand.
func (op Opcode) HasAddress() bool {
	switch op {
	case CopyFrom, CopyTo, CopyFromIndirect, CopyToIndirect, Add, Sub, SubIndirect,
		BumpUp, BumpDown, BumpUpIndirect, BumpDownIndirect:
		return true
	}
	return false
}

// Instruction is one line of a program. Operand carries the address (or the
// Debug value); Target carries the label name for Label and jumps.
type Instruction struct {
	Op      Opcode
	Operand int
	Target  string
}

// Constructors used by the code generator and tests.

func Lbl(name string) Instruction               { return Instruction{Op: Label, Target: name} }
func Addr(op Opcode, addr int) Instruction      { return Instruction{Op: op, Operand: addr} }
func JumpTo(op Opcode, name string) Instruction { return Instruction{Op: op, Target: name} }
func Plain(op Opcode) Instruction               { return Instruction{Op: op} }

// String renders the instruction in listing form, e.g. "COPYFROM [12]" or "a:".
func (i Instruction) String() string {
	switch {
	case i.Op == Label:
		return i.Target + ":"
	case i.Op.IsJump():
		return i.Op.Mnemonic() + " " + i.Target
	case i.Op.IsIndirect():
		return fmt.Sprintf("%s [%d]", i.Op.Mnemonic(), i.Operand)
	case i.Op.HasAddress(), i.Op == Debug:
		return fmt.Sprintf("%s %d", i.Op.Mnemonic(), i.Operand)
	default:
		return i.Op.Mnemonic()
	}
}

// Format renders a full listing. Labels start in column zero, everything
// else is indented by four spaces.
func Format(prog []Instruction) string {
	var sb strings.Builder
	for _, ins := range prog {
		if ins.Op != Label {
			sb.WriteString("    ")
		}
		sb.WriteString(ins.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
