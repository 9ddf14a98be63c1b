package asm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// byMnemonic maps a listing mnemonic to its direct and indirect opcodes.
// An indirect entry of -1 means the bracketed form does not exist.
var byMnemonic = map[string][2]Opcode{
	"COPYFROM": {CopyFrom, CopyFromIndirect},
	"COPYTO":   {CopyTo, CopyToIndirect},
	"ADD":      {Add, -1},
	"SUB":      {Sub, SubIndirect},
	"BUMPUP":   {BumpUp, BumpUpIndirect},
	"BUMPDN":   {BumpDown, BumpDownIndirect},
	"JUMP":     {Jump, -1},
	"JUMPZ":    {JumpIfZero, -1},
	"JUMPN":    {JumpIfNegative, -1},
	"INBOX":    {Inbox, -1},
	"OUTBOX":   {Outbox, -1},
	"DEBUG":    {Debug, -1},
}

// ParseError reports a malformed listing line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

type parsedLine struct {
	lineNo   int
	labels   []string
	mnemonic string
	operands []string
}

// Parse reads a listing produced by Format (or written by hand) back into
// instructions. Lines starting with "--" and text after ';' or "//" are
// comments. Mnemonics are case-insensitive; label names are kept verbatim.
func Parse(text string) ([]Instruction, error) {
	var prog []Instruction
	for i, raw := range strings.Split(text, "\n") {
		p, err := parseLine(raw, i+1)
		if err != nil {
			return nil, err
		}
		for _, l := range p.labels {
			prog = append(prog, Lbl(l))
		}
		if p.mnemonic == "" {
			continue
		}
		ins, err := p.instruction()
		if err != nil {
			return nil, err
		}
		prog = append(prog, ins)
	}
	return prog, nil
}

// MustParse is like Parse but panics on error. Intended for tests and
// package-level listings.
func MustParse(text string) []Instruction {
	prog, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return prog
}

func parseLine(raw string, lineNo int) (parsedLine, error) {
	p := parsedLine{lineNo: lineNo}

	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "--") {
		return p, nil
	}

	line = strings.TrimSpace(stripComments(line))
	for {
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			break
		}
		name := strings.TrimSpace(line[:colon])
		if !isIdentifier(name) {
			return p, &ParseError{lineNo, fmt.Sprintf("invalid label %q", name)}
		}
		p.labels = append(p.labels, name)
		line = strings.TrimSpace(line[colon+1:])
	}
	if line == "" {
		return p, nil
	}

	fields := strings.Fields(normalizeInstructionText(line))
	p.mnemonic = strings.ToUpper(fields[0])
	p.operands = fields[1:]
	return p, nil
}

func (p parsedLine) instruction() (Instruction, error) {
	ops, ok := byMnemonic[p.mnemonic]
	if !ok {
		return Instruction{}, &ParseError{p.lineNo, fmt.Sprintf("unknown instruction %q", p.mnemonic)}
	}
	op := ops[0]

	switch {
	case op == Inbox || op == Outbox:
		if len(p.operands) != 0 {
			return Instruction{}, &ParseError{p.lineNo, p.mnemonic + " takes no operand"}
		}
		return Plain(op), nil
	case len(p.operands) != 1:
		return Instruction{}, &ParseError{p.lineNo, p.mnemonic + " expects exactly one operand"}
	}

	operand := p.operands[0]
	if op.IsJump() {
		if !isIdentifier(operand) {
			return Instruction{}, &ParseError{p.lineNo, fmt.Sprintf("invalid jump target %q", operand)}
		}
		return JumpTo(op, operand), nil
	}

	if strings.HasPrefix(operand, "[") && strings.HasSuffix(operand, "]") {
		if ops[1] < 0 {
			return Instruction{}, &ParseError{p.lineNo, p.mnemonic + " has no indirect form"}
		}
		op = ops[1]
		operand = operand[1 : len(operand)-1]
	}
	n, err := strconv.Atoi(operand)
	if err != nil {
		return Instruction{}, &ParseError{p.lineNo, fmt.Sprintf("invalid operand %q", operand)}
	}
	if op != Debug && n < 0 {
		return Instruction{}, &ParseError{p.lineNo, fmt.Sprintf("negative address %d", n)}
	}
	return Addr(op, n), nil
}

func stripComments(line string) string {
	cut := -1
	if i := strings.Index(line, ";"); i >= 0 {
		cut = i
	}
	if i := strings.Index(line, "//"); i >= 0 && (cut == -1 || i < cut) {
		cut = i
	}
	if cut >= 0 {
		return line[:cut]
	}
	return line
}

// normalizeInstructionText squeezes "[ 12 ]" into "[12]" so operands split cleanly.
func normalizeInstructionText(line string) string {
	line = strings.ReplaceAll(line, "[ ", "[")
	return strings.ReplaceAll(line, " ]", "]")
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !unicode.IsLetter(r) && r != '_' {
			return false
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}
	return true
}
