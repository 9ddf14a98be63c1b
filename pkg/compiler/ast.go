package compiler

import (
	"fmt"
	"strings"
)

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string { return fmt.Sprintf("%d:%d", p.Line, p.Col) }

// Trueness names the accumulator condition under which a boolean
// expression holds, once its operands have been reduced to one difference.
type Trueness int

const (
	Zero Trueness = iota
	NotZero
	LessThanZero
	LessOrZero
	MoreThanZero
	MoreOrZero
)

var truenessNames = [...]string{"Zero", "NotZero", "LessThanZero", "LessOrZero", "MoreThanZero", "MoreOrZero"}

func (t Trueness) String() string {
	if t >= 0 && int(t) < len(truenessNames) {
		return truenessNames[t]
	}
	return fmt.Sprintf("Trueness(%d)", int(t))
}

// Mirror returns the trueness that holds for b-a when t holds for a-b.
func (t Trueness) Mirror() Trueness {
	switch t {
	case LessThanZero:
		return MoreThanZero
	case LessOrZero:
		return MoreOrZero
	case MoreThanZero:
		return LessThanZero
	case MoreOrZero:
		return LessOrZero
	}
	return t
}

// truenessOf maps a comparison operator to the condition on left-right.
func truenessOf(op TokenType) Trueness {
	switch op {
	case NOT_EQ:
		return NotZero
	case LESS:
		return LessThanZero
	case LESS_EQ:
		return LessOrZero
	case GREATER:
		return MoreThanZero
	case GREATER_EQ:
		return MoreOrZero
	}
	return Zero
}

// Node is implemented by every AST node.
type Node interface {
	Pos() Pos
	String() string
}

//  Expression nodes

// Expr is implemented by every node that produces a value.
// genExpr always leaves the result in the accumulator.
type Expr interface {
	Node
	exprNode()
	// IsBoolean reports whether the expression has boolean type.
	IsBoolean() bool
	// Trueness is meaningful only for boolean expressions.
	Trueness() Trueness
}

// IntLiteral is a compile-time integer constant.
//
//	const int *a = 5;
//	               ^  IntLiteral{Value: 5}
type IntLiteral struct {
	At    Pos
	Value int
}

func (*IntLiteral) exprNode()          {}
func (l *IntLiteral) Pos() Pos         { return l.At }
func (*IntLiteral) IsBoolean() bool    { return false }
func (*IntLiteral) Trueness() Trueness { return NotZero }
func (l *IntLiteral) String() string   { return fmt.Sprintf("%d", l.Value) }

// BoolLiteral is true or false.
type BoolLiteral struct {
	At    Pos
	Value bool
}

func (*BoolLiteral) exprNode()          {}
func (l *BoolLiteral) Pos() Pos         { return l.At }
func (*BoolLiteral) IsBoolean() bool    { return true }
func (*BoolLiteral) Trueness() Trueness { return NotZero }
func (l *BoolLiteral) String() string   { return fmt.Sprintf("%t", l.Value) }

// IncDec records a ++/-- attached to a variable reference.
type IncDec int

const (
	NoIncDec IncDec = iota
	PreInc
	PreDec
	PostInc
	PostDec
)

// IsInc reports whether the bump is an increment.
func (d IncDec) IsInc() bool { return d == PreInc || d == PostInc }

// IsPost reports whether the expression yields the value before the bump.
func (d IncDec) IsPost() bool { return d == PostInc || d == PostDec }

// VarRef is a read of a named variable, optionally through the pointer
// and optionally bumped.
//
//	*a++
//	^ ^^  VarRef{Name: "a", Indirect: true, IncDec: PostInc}
type VarRef struct {
	At       Pos
	Name     string
	Indirect bool
	IncDec   IncDec
}

func (*VarRef) exprNode()          {}
func (v *VarRef) Pos() Pos         { return v.At }
func (*VarRef) IsBoolean() bool    { return false }
func (*VarRef) Trueness() Trueness { return NotZero }
func (v *VarRef) String() string {
	var sb strings.Builder
	if v.Indirect {
		sb.WriteByte('*')
	}
	switch v.IncDec {
	case PreInc:
		sb.WriteString("++")
	case PreDec:
		sb.WriteString("--")
	}
	sb.WriteString(v.Name)
	switch v.IncDec {
	case PostInc:
		sb.WriteString("++")
	case PostDec:
		sb.WriteString("--")
	}
	return sb.String()
}

// Assignment stores Value into Name (or into the cell Name points at).
// It is an expression and leaves the stored value in the accumulator.
//
//	while ((b = input()) == a)
//	        ^^^^^^^^^^^  Assignment{Name: "b", Value: FunctionCall{input}}
type Assignment struct {
	At       Pos
	Name     string
	Indirect bool
	Value    Expr
}

func (*Assignment) exprNode()          {}
func (a *Assignment) Pos() Pos         { return a.At }
func (*Assignment) IsBoolean() bool    { return false }
func (*Assignment) Trueness() Trueness { return NotZero }
func (a *Assignment) String() string {
	star := ""
	if a.Indirect {
		star = "*"
	}
	return fmt.Sprintf("(%s%s = %s)", star, a.Name, a.Value)
}

// FunctionCall represents one of the built-ins input(), output(x), debug(n).
type FunctionCall struct {
	At   Pos
	Name string
	Args []Expr
}

func (*FunctionCall) exprNode()          {}
func (c *FunctionCall) Pos() Pos         { return c.At }
func (*FunctionCall) IsBoolean() bool    { return false }
func (*FunctionCall) Trueness() Trueness { return NotZero }
func (c *FunctionCall) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Name, strings.Join(args, ", "))
}

// MultiplyExpr is Left Op Right with Op in {*, /, %}.
type MultiplyExpr struct {
	At    Pos
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*MultiplyExpr) exprNode()          {}
func (m *MultiplyExpr) Pos() Pos         { return m.At }
func (*MultiplyExpr) IsBoolean() bool    { return false }
func (*MultiplyExpr) Trueness() Trueness { return NotZero }
func (m *MultiplyExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", m.Left, opText(m.Op), m.Right)
}

// OperationExpr is a left-to-right chain of + and -.
//
//	a - b + c
//	Operands: [a b c]  Ops: [MINUS PLUS]
type OperationExpr struct {
	At       Pos
	Operands []Expr
	Ops      []TokenType // len(Ops) == len(Operands)-1
}

func (*OperationExpr) exprNode()          {}
func (o *OperationExpr) Pos() Pos         { return o.At }
func (*OperationExpr) IsBoolean() bool    { return false }
func (*OperationExpr) Trueness() Trueness { return NotZero }
func (o *OperationExpr) String() string   { return chainString(o.Operands, o.Ops) }

// EqualityExpr is a single comparison. The parser only builds one when an
// operator is present, so it is always boolean.
type EqualityExpr struct {
	At    Pos
	Op    TokenType
	Left  Expr
	Right Expr
}

func (*EqualityExpr) exprNode()            {}
func (e *EqualityExpr) Pos() Pos           { return e.At }
func (*EqualityExpr) IsBoolean() bool      { return true }
func (e *EqualityExpr) Trueness() Trueness { return truenessOf(e.Op) }
func (e *EqualityExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", e.Left, opText(e.Op), e.Right)
}

// LogicalExpr is a chain of comparisons joined by && and ||.
type LogicalExpr struct {
	At       Pos
	Operands []Expr
	Ops      []TokenType // AND_LOGICAL or OR_LOGICAL
}

func (*LogicalExpr) exprNode()       {}
func (l *LogicalExpr) Pos() Pos      { return l.At }
func (*LogicalExpr) IsBoolean() bool { return true }

// Trueness is NotZero when every operand is NotZero, LessThanZero when every
// operand is LessThanZero, and Zero otherwise.
func (l *LogicalExpr) Trueness() Trueness {
	all := func(t Trueness) bool {
		for _, op := range l.Operands {
			if op.Trueness() != t {
				return false
			}
		}
		return true
	}
	switch {
	case all(NotZero):
		return NotZero
	case all(LessThanZero):
		return LessThanZero
	}
	return Zero
}

func (l *LogicalExpr) String() string { return chainString(l.Operands, l.Ops) }

// groups splits the chain at || into &&-joined groups.
func (l *LogicalExpr) groups() [][]Expr {
	groups := [][]Expr{{l.Operands[0]}}
	for i, op := range l.Ops {
		if op == OR_LOGICAL {
			groups = append(groups, nil)
		}
		last := len(groups) - 1
		groups[last] = append(groups[last], l.Operands[i+1])
	}
	return groups
}

//  Statement nodes

// Stmt is implemented by every statement node.
type Stmt interface {
	Node
	stmtNode()
}

// VariableDecl declares a scalar, pointer, constant pointer or array.
//
//	const int *Zptr = 9;   VariableDecl{Name: "Zptr", IsConst, IsPointer, Init: 9}
//	int buf[10];           VariableDecl{Name: "buf", IsArray, ArraySize: 10}
type VariableDecl struct {
	At        Pos
	Name      string
	IsArray   bool
	ArraySize int
	IsConst   bool
	IsPointer bool
	Init      Expr // nil when absent
}

func (*VariableDecl) stmtNode()  {}
func (d *VariableDecl) Pos() Pos { return d.At }

// IsConstPointer reports whether the declaration names a compile-time address.
func (d *VariableDecl) IsConstPointer() bool { return d.IsConst && d.IsPointer }

func (d *VariableDecl) String() string {
	var sb strings.Builder
	if d.IsConst {
		sb.WriteString("const ")
	}
	sb.WriteString("int ")
	if d.IsPointer {
		sb.WriteByte('*')
	}
	sb.WriteString(d.Name)
	if d.IsArray {
		fmt.Fprintf(&sb, "[%d]", d.ArraySize)
	}
	if d.Init != nil {
		fmt.Fprintf(&sb, " = %s", d.Init)
	}
	sb.WriteByte(';')
	return sb.String()
}

// BlockStmt is { stmts }.
type BlockStmt struct {
	At    Pos
	Stmts []Stmt
}

func (*BlockStmt) stmtNode()  {}
func (b *BlockStmt) Pos() Pos { return b.At }
func (b *BlockStmt) String() string {
	parts := make([]string, 0, len(b.Stmts)+2)
	parts = append(parts, "{")
	for _, s := range b.Stmts {
		parts = append(parts, s.String())
	}
	parts = append(parts, "}")
	return strings.Join(parts, " ")
}

// IfStmt is if (Cond) Then [else Else].
type IfStmt struct {
	At   Pos
	Cond Expr
	Then Stmt
	Else Stmt // nil when absent
}

func (*IfStmt) stmtNode()  {}
func (s *IfStmt) Pos() Pos { return s.At }
func (s *IfStmt) String() string {
	if s.Else == nil {
		return fmt.Sprintf("if %s %s", s.Cond, s.Then)
	}
	return fmt.Sprintf("if %s %s else %s", s.Cond, s.Then, s.Else)
}

// WhileStmt is while (Cond) Body. The test runs before every iteration.
type WhileStmt struct {
	At   Pos
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode()        {}
func (s *WhileStmt) Pos() Pos       { return s.At }
func (s *WhileStmt) String() string { return fmt.Sprintf("while %s %s", s.Cond, s.Body) }

// ExprStmt is an expression evaluated for its effect.
type ExprStmt struct {
	At Pos
	X  Expr
}

func (*ExprStmt) stmtNode()        {}
func (s *ExprStmt) Pos() Pos       { return s.At }
func (s *ExprStmt) String() string { return s.X.String() + ";" }

// EmptyStmt is a lone ';'.
type EmptyStmt struct {
	At Pos
}

func (*EmptyStmt) stmtNode()      {}
func (s *EmptyStmt) Pos() Pos     { return s.At }
func (*EmptyStmt) String() string { return ";" }

// Program is the root of the tree.
type Program struct {
	Stmts []Stmt
}

func (p *Program) String() string {
	lines := make([]string, len(p.Stmts))
	for i, s := range p.Stmts {
		lines[i] = s.String()
	}
	return strings.Join(lines, "\n")
}

var opTexts = map[TokenType]string{
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	EQUALS: "==", NOT_EQ: "!=", LESS: "<", LESS_EQ: "<=", GREATER: ">", GREATER_EQ: ">=",
	AND_LOGICAL: "&&", OR_LOGICAL: "||",
}

func opText(op TokenType) string {
	if s, ok := opTexts[op]; ok {
		return s
	}
	return op.String()
}

func chainString(operands []Expr, ops []TokenType) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, e := range operands {
		if i > 0 {
			fmt.Fprintf(&sb, " %s ", opText(ops[i-1]))
		}
		sb.WriteString(e.String())
	}
	sb.WriteByte(')')
	return sb.String()
}
