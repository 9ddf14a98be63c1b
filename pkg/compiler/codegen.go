package compiler

import (
	"errors"
	"fmt"

	"github.com/kyberias/HRMC/pkg/asm"
)

// DefaultMemorySize is the number of cells on the machine's floor.
const DefaultMemorySize = 100

// InternalError marks a state the generator should never reach with a
// program that passed analysis. It is a compiler bug, not a user diagnostic.
type InternalError struct {
	Pos Pos
	Msg string
}

func (e *InternalError) Error() string {
	if e.Pos.Line == 0 {
		return "internal compiler error: " + e.Msg
	}
	return fmt.Sprintf("internal compiler error at %s: %s", e.Pos, e.Msg)
}

func internalf(pos Pos, format string, args ...any) *InternalError {
	return &InternalError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// GenOptions tunes Generate.
type GenOptions struct {
	// MemorySize bounds the cells the program may use. Zero means DefaultMemorySize.
	MemorySize int
}

// Output is the result of code generation.
type Output struct {
	Instructions []asm.Instruction
	Symbols      *SymbolTable
	CellsUsed    int // one past the highest cell holding a variable or temporary
}

// labelAlphabet gives bijective base-24 label names: a..x, aa, ab, ...
const labelAlphabet = "abcdefghijklmnopqrstuvwx"

// labelAllocator hands out unique, monotonically increasing label names.
type labelAllocator struct {
	next int
}

func (l *labelAllocator) newLabel() string {
	n := l.next
	l.next++
	return labelName(n)
}

func labelName(n int) string {
	var buf []byte
	for n++; n > 0; n /= len(labelAlphabet) {
		n--
		buf = append(buf, labelAlphabet[n%len(labelAlphabet)])
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}

// cell is a memory operand: mem[addr], or mem[mem[addr]] when indirect.
type cell struct {
	addr     int
	indirect bool
}

// CodeGen lowers an analyzed program to machine instructions.
type CodeGen struct {
	out    []asm.Instruction
	syms   *SymbolTable
	mem    *arena
	labels labelAllocator
	info   *Info

	zero    cell
	hasZero bool
}

// Generate lowers prog. info must come from a successful Analyze of prog.
func Generate(prog *Program, info *Info, opts GenOptions) (out *Output, err error) {
	size := opts.MemorySize
	if size == 0 {
		size = DefaultMemorySize
	}
	g := &CodeGen{
		syms: NewSymbolTable(),
		mem:  newArena(size),
		info: info,
	}

	defer func() {
		if r := recover(); r != nil {
			switch r := r.(type) {
			case *InternalError:
				err = r
			case string:
				err = internalf(Pos{}, "%s", r)
			case error:
				if !errors.Is(r, ErrMemoryExhausted) {
					panic(r)
				}
				err = r
			default:
				panic(r)
			}
		}
	}()

	// PRE-PASS: constant pointers claim their addresses before anything is
	// allocated, wherever they are declared.
	walkDecls(prog.Stmts, func(d *VariableDecl) {
		lit, ok := d.Init.(*IntLiteral)
		if !d.IsConstPointer() || !ok {
			return
		}
		g.mem.reserve(lit.Value)
		if d.Name == info.ZeroName() && !g.hasZero {
			g.zero, g.hasZero = cell{addr: lit.Value}, true
		}
	})

	for _, s := range prog.Stmts {
		if err := g.genStmt(s); err != nil {
			return nil, err
		}
	}
	return &Output{Instructions: g.out, Symbols: g.syms, CellsUsed: g.mem.high}, nil
}

func (g *CodeGen) emit(ins asm.Instruction)   { g.out = append(g.out, ins) }
func (g *CodeGen) op(op asm.Opcode, addr int) { g.emit(asm.Addr(op, addr)) }
func (g *CodeGen) jump(op asm.Opcode, target string) {
	g.emit(asm.JumpTo(op, target))
}
func (g *CodeGen) label(name string) { g.emit(asm.Lbl(name)) }

func (g *CodeGen) load(c cell) {
	if c.indirect {
		g.op(asm.CopyFromIndirect, c.addr)
	} else {
		g.op(asm.CopyFrom, c.addr)
	}
}

func (g *CodeGen) store(c cell) {
	if c.indirect {
		g.op(asm.CopyToIndirect, c.addr)
	} else {
		g.op(asm.CopyTo, c.addr)
	}
}

func (g *CodeGen) sub(c cell) {
	if c.indirect {
		g.op(asm.SubIndirect, c.addr)
	} else {
		g.op(asm.Sub, c.addr)
	}
}

func (g *CodeGen) bump(c cell, inc bool) {
	switch {
	case inc && c.indirect:
		g.op(asm.BumpUpIndirect, c.addr)
	case inc:
		g.op(asm.BumpUp, c.addr)
	case c.indirect:
		g.op(asm.BumpDownIndirect, c.addr)
	default:
		g.op(asm.BumpDown, c.addr)
	}
}

func (g *CodeGen) temp() int {
	addr, err := g.mem.temp()
	if err != nil {
		panic(err)
	}
	return addr
}

func (g *CodeGen) symbol(pos Pos, name string) Symbol {
	sym, ok := g.syms.Lookup(name)
	if !ok {
		panic(internalf(pos, "undefined symbol %s", name))
	}
	return sym
}

// target resolves a variable to the cell it reads or writes. Indirection
// through a constant pointer is a direct access to its literal address.
func (g *CodeGen) target(pos Pos, name string, indirect bool) cell {
	sym := g.symbol(pos, name)
	if sym.Kind == SymbolConstant {
		if !indirect {
			panic(internalf(pos, "constant pointer %s used without dereference", name))
		}
		return cell{addr: sym.Address}
	}
	return cell{addr: sym.Address, indirect: indirect}
}

// operand reports whether e can be read by a single memory operand.
func (g *CodeGen) operand(e Expr) (cell, bool) {
	switch e := e.(type) {
	case *VarRef:
		if e.IncDec == NoIncDec {
			return g.target(e.At, e.Name, e.Indirect), true
		}
	case *IntLiteral:
		if e.Value == 0 && g.hasZero {
			return g.zero, true
		}
	}
	return cell{}, false
}

func isZeroLiteral(e Expr) bool {
	lit, ok := e.(*IntLiteral)
	return ok && lit.Value == 0
}

//  Statements

func (g *CodeGen) genStmt(s Stmt) error {
	switch s := s.(type) {
	case *VariableDecl:
		return g.genDecl(s)
	case *BlockStmt:
		for _, inner := range s.Stmts {
			if err := g.genStmt(inner); err != nil {
				return err
			}
		}
		return nil
	case *IfStmt:
		return g.genIf(s)
	case *WhileStmt:
		return g.genWhile(s)
	case *ExprStmt:
		return g.genEffect(s.X)
	case *EmptyStmt:
		return nil
	}
	return internalf(s.Pos(), "unknown statement %T", s)
}

func (g *CodeGen) genDecl(d *VariableDecl) error {
	if _, exists := g.syms.Lookup(d.Name); exists {
		return nil
	}
	addr, err := g.define(d)
	if err != nil || d.IsConstPointer() || d.IsArray || d.Init == nil {
		return err
	}
	if err := g.genExpr(d.Init); err != nil {
		return err
	}
	g.op(asm.CopyTo, addr)
	return nil
}

// define gives d its storage and symbol without emitting code. It returns
// the address of a scalar.
func (g *CodeGen) define(d *VariableDecl) (int, error) {
	switch {
	case d.IsConstPointer():
		lit, ok := d.Init.(*IntLiteral)
		if !ok {
			return 0, internalf(d.At, "constant pointer %s has no literal value", d.Name)
		}
		g.syms.Define(Symbol{Name: d.Name, Kind: SymbolConstant, Address: lit.Value, Pointer: true})
		return lit.Value, nil
	case d.IsArray:
		base, err := g.mem.declareArray(d.ArraySize)
		if err != nil {
			return 0, err
		}
		g.syms.Define(Symbol{Name: d.Name, Kind: SymbolArray, Address: base, Size: d.ArraySize})
		return base, nil
	}
	addr, err := g.mem.declare()
	if err != nil {
		return 0, err
	}
	g.syms.Define(Symbol{Name: d.Name, Kind: SymbolScalar, Address: addr, Size: 1, Pointer: d.IsPointer})
	return addr, nil
}

// defineOnly defines the declarations inside a branch that folding removed.
// Declarations are visible program-wide, so later statements may use them.
func (g *CodeGen) defineOnly(s Stmt) error {
	var err error
	walkDecls([]Stmt{s}, func(d *VariableDecl) {
		if err != nil {
			return
		}
		if _, exists := g.syms.Lookup(d.Name); !exists {
			_, err = g.define(d)
		}
	})
	return err
}

func (g *CodeGen) genIf(s *IfStmt) error {
	if v, ok := g.info.Constant(s.Cond); ok {
		if v {
			if s.Else != nil {
				if err := g.defineOnly(s.Else); err != nil {
					return err
				}
			}
			return g.genStmt(s.Then)
		}
		if err := g.defineOnly(s.Then); err != nil {
			return err
		}
		if s.Else != nil {
			return g.genStmt(s.Else)
		}
		return nil
	}

	elseLabel := g.labels.newLabel()
	if err := g.genBranch(s.Cond, elseLabel); err != nil {
		return err
	}
	if err := g.genStmt(s.Then); err != nil {
		return err
	}
	if s.Else == nil {
		g.label(elseLabel)
		return nil
	}
	after := g.labels.newLabel()
	g.jump(asm.Jump, after)
	g.label(elseLabel)
	if err := g.genStmt(s.Else); err != nil {
		return err
	}
	g.label(after)
	return nil
}

func (g *CodeGen) genWhile(s *WhileStmt) error {
	v, constant := g.info.Constant(s.Cond)
	if constant && !v {
		return g.defineOnly(s.Body)
	}

	start := g.labels.newLabel()
	g.label(start)
	if constant {
		if err := g.genStmt(s.Body); err != nil {
			return err
		}
		g.jump(asm.Jump, start)
		return nil
	}

	exit := g.labels.newLabel()
	if err := g.genBranch(s.Cond, exit); err != nil {
		return err
	}
	if err := g.genStmt(s.Body); err != nil {
		return err
	}
	g.jump(asm.Jump, start)
	g.label(exit)
	return nil
}

//  Conditions

// genBranch emits code that falls through when cond holds and jumps to
// onFalse when it does not.
func (g *CodeGen) genBranch(cond Expr, onFalse string) error {
	if v, ok := g.info.Constant(cond); ok {
		if !v {
			g.jump(asm.Jump, onFalse)
		}
		return nil
	}
	switch c := cond.(type) {
	case *LogicalExpr:
		return g.genLogical(c, onFalse)
	case *EqualityExpr:
		t, err := g.genComparison(c)
		if err != nil {
			return err
		}
		return g.branchOn(c.At, t, onFalse)
	}
	return internalf(cond.Pos(), "%T is not a condition", cond)
}

// genLogical lowers a chain of && groups joined by ||. Every && operand
// jumps out on falsehood; a group that holds completely jumps to the body.
func (g *CodeGen) genLogical(l *LogicalExpr, onFalse string) error {
	groups := l.groups()
	if len(groups) == 1 {
		return g.genAll(groups[0], onFalse)
	}
	body := g.labels.newLabel()
	for i, group := range groups {
		if i == len(groups)-1 {
			if err := g.genAll(group, onFalse); err != nil {
				return err
			}
			break
		}
		next := g.labels.newLabel()
		if err := g.genAll(group, next); err != nil {
			return err
		}
		g.jump(asm.Jump, body)
		g.label(next)
	}
	g.label(body)
	return nil
}

func (g *CodeGen) genAll(operands []Expr, onFalse string) error {
	for _, op := range operands {
		if err := g.genBranch(op, onFalse); err != nil {
			return err
		}
	}
	return nil
}

// genComparison leaves a difference of the two sides in the accumulator and
// returns the trueness that difference must satisfy. When the right side is
// subtracted from the left the node's own trueness applies; when the roles
// swap it is mirrored.
func (g *CodeGen) genComparison(e *EqualityExpr) (Trueness, error) {
	t := e.Trueness()
	switch {
	case isZeroLiteral(e.Right):
		return t, g.genExpr(e.Left)
	case isZeroLiteral(e.Left):
		return t.Mirror(), g.genExpr(e.Right)
	}
	if c, ok := g.operand(e.Right); ok {
		if err := g.genExpr(e.Left); err != nil {
			return t, err
		}
		g.sub(c)
		return t, nil
	}
	if c, ok := g.operand(e.Left); ok {
		if err := g.genExpr(e.Right); err != nil {
			return t, err
		}
		g.sub(c)
		return t.Mirror(), nil
	}

	tmp := g.temp()
	if err := g.genExpr(e.Left); err != nil {
		return t, err
	}
	g.op(asm.CopyTo, tmp)
	if err := g.genExpr(e.Right); err != nil {
		return t, err
	}
	g.op(asm.Sub, tmp)
	g.mem.release(tmp)
	return t.Mirror(), nil
}

// branchOn jumps to onFalse unless the accumulator satisfies t.
func (g *CodeGen) branchOn(pos Pos, t Trueness, onFalse string) error {
	switch t {
	case Zero:
		ok := g.labels.newLabel()
		g.jump(asm.JumpIfZero, ok)
		g.jump(asm.Jump, onFalse)
		g.label(ok)
	case NotZero:
		g.jump(asm.JumpIfZero, onFalse)
	case LessThanZero:
		ok := g.labels.newLabel()
		g.jump(asm.JumpIfNegative, ok)
		g.jump(asm.Jump, onFalse)
		g.label(ok)
	case LessOrZero:
		ok := g.labels.newLabel()
		g.jump(asm.JumpIfZero, ok)
		g.jump(asm.JumpIfNegative, ok)
		g.jump(asm.Jump, onFalse)
		g.label(ok)
	case MoreThanZero:
		g.jump(asm.JumpIfZero, onFalse)
		g.jump(asm.JumpIfNegative, onFalse)
	case MoreOrZero:
		g.jump(asm.JumpIfNegative, onFalse)
	default:
		return internalf(pos, "no branch shape for trueness %s", t)
	}
	return nil
}

//  Expressions

// genEffect evaluates e for its side effects only.
func (g *CodeGen) genEffect(e Expr) error {
	if _, ok := g.info.Constant(e); ok {
		return nil
	}
	switch x := e.(type) {
	case *VarRef:
		if x.IncDec != NoIncDec {
			g.bump(g.target(x.At, x.Name, x.Indirect), x.IncDec.IsInc())
		}
		return nil
	case *IntLiteral, *BoolLiteral:
		return nil
	case *LogicalExpr:
		// Only the operands' side effects matter; both outcomes meet at skip.
		skip := g.labels.newLabel()
		if err := g.genBranch(x, skip); err != nil {
			return err
		}
		g.label(skip)
		return nil
	}
	return g.genExpr(e)
}

// genExpr leaves the value of e in the accumulator.
func (g *CodeGen) genExpr(e Expr) error {
	switch e := e.(type) {
	case *IntLiteral:
		if c, ok := g.operand(e); ok {
			g.load(c)
			return nil
		}
		return internalf(e.At, "integer literal %d cannot be loaded", e.Value)
	case *VarRef:
		g.genVarRef(e)
		return nil
	case *Assignment:
		if err := g.genExpr(e.Value); err != nil {
			return err
		}
		g.store(g.target(e.At, e.Name, e.Indirect))
		return nil
	case *FunctionCall:
		return g.genCall(e)
	case *OperationExpr:
		return g.genOperation(e)
	case *MultiplyExpr:
		if e.Op == STAR {
			return g.genProduct(e)
		}
		return g.genQuotient(e)
	case *EqualityExpr:
		_, err := g.genComparison(e)
		return err
	}
	return internalf(e.Pos(), "%T cannot be used as a value", e)
}

func (g *CodeGen) genVarRef(v *VarRef) {
	c := g.target(v.At, v.Name, v.Indirect)
	switch {
	case v.IncDec == NoIncDec:
		g.load(c)
	case !v.IncDec.IsPost():
		g.bump(c, v.IncDec.IsInc())
	default:
		old := g.temp()
		g.load(c)
		g.op(asm.CopyTo, old)
		g.bump(c, v.IncDec.IsInc())
		g.op(asm.CopyFrom, old)
		g.mem.release(old)
	}
}

func (g *CodeGen) genCall(c *FunctionCall) error {
	switch c.Name {
	case "input":
		g.emit(asm.Plain(asm.Inbox))
	case "output":
		if len(c.Args) != 1 {
			return internalf(c.At, "output with %d arguments", len(c.Args))
		}
		if err := g.genExpr(c.Args[0]); err != nil {
			return err
		}
		g.emit(asm.Plain(asm.Outbox))
	case "debug":
		lit, ok := c.Args[0].(*IntLiteral)
		if !ok {
			return internalf(c.At, "debug argument is not a literal")
		}
		g.op(asm.Debug, lit.Value)
	default:
		return internalf(c.At, "unknown function %s", c.Name)
	}
	return nil
}

// genOperation accumulates a +/- chain left to right. Terms that are plain
// memory operands are added or subtracted in place. Other terms need the
// running total parked in a temporary; for '-' the new term is parked too so
// it can be subtracted from the reloaded total.
func (g *CodeGen) genOperation(o *OperationExpr) error {
	if err := g.genExpr(o.Operands[0]); err != nil {
		return err
	}
	total, haveTotal := 0, false
	for i, term := range o.Operands[1:] {
		minus := o.Ops[i] == MINUS
		if c, ok := g.operand(term); ok && (minus || !c.indirect) {
			if minus {
				g.sub(c)
			} else {
				g.op(asm.Add, c.addr)
			}
			continue
		}

		if !haveTotal {
			total, haveTotal = g.temp(), true
		}
		g.op(asm.CopyTo, total)
		if err := g.genExpr(term); err != nil {
			return err
		}
		if !minus {
			g.op(asm.Add, total)
			continue
		}
		t2 := g.temp()
		g.op(asm.CopyTo, t2)
		g.op(asm.CopyFrom, total)
		g.op(asm.Sub, t2)
		g.mem.release(t2)
	}
	if haveTotal {
		g.mem.release(total)
	}
	return nil
}

func (g *CodeGen) zeroCell(pos Pos) cell {
	if !g.hasZero {
		panic(internalf(pos, "no zero constant pointer"))
	}
	return g.zero
}

// genProduct multiplies by repeated addition, counting the right operand
// toward zero from either side.
func (g *CodeGen) genProduct(m *MultiplyExpr) error {
	zero := g.zeroCell(m.At)
	mark := g.mem.mark()

	mcand := g.temp()
	if err := g.genExpr(m.Left); err != nil {
		return err
	}
	g.op(asm.CopyTo, mcand)
	count := g.temp()
	if err := g.genExpr(m.Right); err != nil {
		return err
	}
	g.op(asm.CopyTo, count)
	sum := g.temp()
	g.load(zero)
	g.op(asm.CopyTo, sum)

	loop, neg, done := g.labels.newLabel(), g.labels.newLabel(), g.labels.newLabel()
	g.label(loop)
	g.op(asm.CopyFrom, count)
	g.jump(asm.JumpIfZero, done)
	g.jump(asm.JumpIfNegative, neg)
	g.op(asm.BumpDown, count)
	g.op(asm.CopyFrom, sum)
	g.op(asm.Add, mcand)
	g.op(asm.CopyTo, sum)
	g.jump(asm.Jump, loop)
	g.label(neg)
	g.op(asm.BumpUp, count)
	g.op(asm.CopyFrom, sum)
	g.op(asm.Sub, mcand)
	g.op(asm.CopyTo, sum)
	g.jump(asm.Jump, loop)
	g.label(done)
	g.op(asm.CopyFrom, sum)

	g.mem.releaseTo(mark)
	return nil
}

// genQuotient divides by repeated subtraction. The quotient counts how many
// times the divisor fits before the remainder would go negative. Operands
// are expected to be non-negative and the divisor non-zero.
func (g *CodeGen) genQuotient(m *MultiplyExpr) error {
	zero := g.zeroCell(m.At)
	mark := g.mem.mark()

	rem := g.temp()
	if err := g.genExpr(m.Left); err != nil {
		return err
	}
	g.op(asm.CopyTo, rem)
	div := g.temp()
	if err := g.genExpr(m.Right); err != nil {
		return err
	}
	g.op(asm.CopyTo, div)
	quot := g.temp()
	g.load(zero)
	g.op(asm.CopyTo, quot)

	loop, done := g.labels.newLabel(), g.labels.newLabel()
	g.label(loop)
	g.op(asm.CopyFrom, rem)
	g.op(asm.Sub, div)
	g.jump(asm.JumpIfNegative, done)
	g.op(asm.CopyTo, rem)
	g.op(asm.BumpUp, quot)
	g.jump(asm.Jump, loop)
	g.label(done)
	if m.Op == PERCENT {
		g.op(asm.CopyFrom, rem)
	} else {
		g.op(asm.CopyFrom, quot)
	}

	g.mem.releaseTo(mark)
	return nil
}
