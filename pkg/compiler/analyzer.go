package compiler

import (
	"fmt"
	"slices"
	"strings"
)

// ErrorCode is the stable identifier of a contextual error.
type ErrorCode int

const (
	UndefinedVariable ErrorCode = iota + 1
	VariableAlreadyDeclared
	UninitializedVariable
	ConstantVariableMustHaveValue
	CannotUseConstPointerValue
	ConstValueCannotChange
	BooleanAssignment
	ConditionNotBoolean
	WrongArgumentCount
	UnknownFunction
	BooleanOperand
	UnsupportedLiteral
	ZeroConstantRequired
	InvalidDebugArgument
	VoidValue
	ArrayInitializer
)

var errorCodeNames = map[ErrorCode]string{
	UndefinedVariable:             "UndefinedVariable",
	VariableAlreadyDeclared:       "VariableAlreadyDeclared",
	UninitializedVariable:         "UninitializedVariable",
	ConstantVariableMustHaveValue: "ConstantVariableMustHaveValue",
	CannotUseConstPointerValue:    "CannotUseConstPointerValue",
	ConstValueCannotChange:        "ConstValueCannotChange",
	BooleanAssignment:             "BooleanAssignment",
	ConditionNotBoolean:           "ConditionNotBoolean",
	WrongArgumentCount:            "WrongArgumentCount",
	UnknownFunction:               "UnknownFunction",
	BooleanOperand:                "BooleanOperand",
	UnsupportedLiteral:            "UnsupportedLiteral",
	ZeroConstantRequired:          "ZeroConstantRequired",
	InvalidDebugArgument:          "InvalidDebugArgument",
	VoidValue:                     "VoidValue",
	ArrayInitializer:              "ArrayInitializer",
}

func (c ErrorCode) String() string {
	if s, ok := errorCodeNames[c]; ok {
		return s
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// ContextError is one violation found by Analyze.
type ContextError struct {
	Code    ErrorCode
	Pos     Pos
	Message string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("line %d:%d: %s (%s)", e.Pos.Line, e.Pos.Col, e.Message, e.Code)
}

// ContextErrors is the ordered list of violations in one program.
type ContextErrors []*ContextError

func (es ContextErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

// Codes returns the error codes in order.
func (es ContextErrors) Codes() []ErrorCode {
	codes := make([]ErrorCode, len(es))
	for i, e := range es {
		codes[i] = e.Code
	}
	return codes
}

// DefaultZeroNames are the constant pointer names that mark the zero cell.
var DefaultZeroNames = []string{"Zptr", "ZeroPtr"}

// AnalyzerOptions tunes Analyze.
type AnalyzerOptions struct {
	// ZeroNames lists constant pointer names whose target cell holds 0 at
	// run time. Multiplication, division and loading the literal 0 need one.
	ZeroNames []string
}

// Info is what analysis learns about a program without touching the tree.
type Info struct {
	constants map[Expr]bool
	zeroName  string
}

// Constant returns the folded value of a boolean expression, if known.
func (in *Info) Constant(e Expr) (value, ok bool) {
	value, ok = in.constants[e]
	return value, ok
}

// ZeroName returns the name of the zero constant pointer, or "".
func (in *Info) ZeroName() string { return in.zeroName }

type variable struct {
	decl        *VariableDecl
	initialized bool
}

type exprCtx int

const (
	ctxValue     exprCtx = iota // the value is loaded into the accumulator
	ctxEffect                   // the value is discarded
	ctxCondition                // the expression drives a branch
)

type analyzer struct {
	vars         map[string]*variable
	info         *Info
	errs         ContextErrors
	zeroReported bool
}

// Analyze checks prog in program order and folds constant conditions. All
// violations are collected; code may only be generated when none are found.
func Analyze(prog *Program, opts AnalyzerOptions) (*Info, ContextErrors) {
	names := opts.ZeroNames
	if names == nil {
		names = DefaultZeroNames
	}
	a := &analyzer{
		vars: make(map[string]*variable),
		info: &Info{constants: make(map[Expr]bool)},
	}
	walkDecls(prog.Stmts, func(d *VariableDecl) {
		if a.info.zeroName != "" || !d.IsConstPointer() || !slices.Contains(names, d.Name) {
			return
		}
		if _, ok := d.Init.(*IntLiteral); ok {
			a.info.zeroName = d.Name
		}
	})
	for _, s := range prog.Stmts {
		a.stmt(s)
	}
	return a.info, a.errs
}

// walkDecls visits every declaration, including those nested in blocks.
func walkDecls(stmts []Stmt, fn func(*VariableDecl)) {
	for _, s := range stmts {
		switch s := s.(type) {
		case *VariableDecl:
			fn(s)
		case *BlockStmt:
			walkDecls(s.Stmts, fn)
		case *IfStmt:
			walkDecls([]Stmt{s.Then}, fn)
			if s.Else != nil {
				walkDecls([]Stmt{s.Else}, fn)
			}
		case *WhileStmt:
			walkDecls([]Stmt{s.Body}, fn)
		}
	}
}

func (a *analyzer) errorf(pos Pos, code ErrorCode, format string, args ...any) {
	a.errs = append(a.errs, &ContextError{Code: code, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

func (a *analyzer) stmt(s Stmt) {
	switch s := s.(type) {
	case *VariableDecl:
		a.decl(s)
	case *BlockStmt:
		for _, inner := range s.Stmts {
			a.stmt(inner)
		}
	case *IfStmt:
		a.condition(s.Cond)
		a.stmt(s.Then)
		if s.Else != nil {
			a.stmt(s.Else)
		}
	case *WhileStmt:
		a.condition(s.Cond)
		a.stmt(s.Body)
	case *ExprStmt:
		a.expr(s.X, ctxEffect)
	case *EmptyStmt:
	}
}

func (a *analyzer) decl(d *VariableDecl) {
	switch {
	case d.IsConstPointer():
		if d.Init == nil {
			a.errorf(d.At, ConstantVariableMustHaveValue, "constant pointer %s must have a value", d.Name)
		} else if _, ok := d.Init.(*IntLiteral); !ok {
			a.errorf(d.Init.Pos(), ConstantVariableMustHaveValue, "constant pointer %s must be initialized with an integer constant", d.Name)
		}
	case d.IsArray:
		if d.Init != nil {
			a.errorf(d.Init.Pos(), ArrayInitializer, "array %s cannot have an initializer", d.Name)
		}
	default:
		if d.IsConst && d.Init == nil {
			a.errorf(d.At, ConstantVariableMustHaveValue, "constant %s must have a value", d.Name)
		}
		if d.Init != nil {
			a.expr(d.Init, ctxValue)
			if d.Init.IsBoolean() {
				a.errorf(d.Init.Pos(), BooleanAssignment, "cannot assign boolean value to variable %s", d.Name)
			}
		}
	}

	if _, exists := a.vars[d.Name]; exists {
		a.errorf(d.At, VariableAlreadyDeclared, "variable %s already declared", d.Name)
		return
	}
	a.vars[d.Name] = &variable{decl: d, initialized: d.Init != nil || d.IsArray}
}

func (a *analyzer) condition(cond Expr) {
	a.expr(cond, ctxCondition)
	if !cond.IsBoolean() {
		a.errorf(cond.Pos(), ConditionNotBoolean, "condition must be of boolean type")
	}
}

func (a *analyzer) lookup(pos Pos, name string) *variable {
	v, ok := a.vars[name]
	if !ok {
		a.errorf(pos, UndefinedVariable, "variable %s not declared", name)
		return nil
	}
	return v
}

// read checks a use of the variable's value or of the cell it points at.
func (a *analyzer) read(r *VarRef) {
	v := a.lookup(r.At, r.Name)
	if v == nil {
		return
	}
	d := v.decl
	if d.IsConstPointer() {
		if !r.Indirect {
			a.errorf(r.At, CannotUseConstPointerValue, "value of constant pointer %s can only be dereferenced", r.Name)
		}
		return
	}
	if !v.initialized {
		a.errorf(r.At, UninitializedVariable, "uninitialized variable %s", r.Name)
	}
	if d.IsConst && !r.Indirect && r.IncDec != NoIncDec {
		a.errorf(r.At, ConstValueCannotChange, "constant %s cannot change", r.Name)
	}
}

func (a *analyzer) assign(s *Assignment) {
	a.expr(s.Value, ctxValue)
	if s.Value.IsBoolean() {
		a.errorf(s.Value.Pos(), BooleanAssignment, "cannot assign boolean value to variable %s", s.Name)
	}
	v := a.lookup(s.At, s.Name)
	if v == nil {
		return
	}
	d := v.decl
	switch {
	case s.Indirect && d.IsConstPointer():
	case s.Indirect:
		if !v.initialized {
			a.errorf(s.At, UninitializedVariable, "uninitialized pointer %s", s.Name)
		}
	case d.IsConst:
		a.errorf(s.At, ConstValueCannotChange, "constant %s cannot change", s.Name)
	default:
		v.initialized = true
	}
}

func (a *analyzer) expr(e Expr, ctx exprCtx) {
	switch e := e.(type) {
	case *IntLiteral:
		if ctx == ctxValue && (e.Value != 0 || a.info.zeroName == "") {
			a.errorf(e.At, UnsupportedLiteral, "integer literal %d cannot be loaded", e.Value)
		}
	case *BoolLiteral:
		a.info.constants[e] = e.Value
	case *VarRef:
		a.read(e)
	case *Assignment:
		a.assign(e)
	case *FunctionCall:
		a.call(e, ctx)
	case *OperationExpr:
		for _, op := range e.Operands {
			a.operand(op)
		}
	case *MultiplyExpr:
		a.operand(e.Left)
		a.operand(e.Right)
		if a.info.zeroName == "" && !a.zeroReported {
			a.zeroReported = true
			a.errorf(e.At, ZeroConstantRequired, "%s needs a zero constant pointer", opText(e.Op))
		}
	case *EqualityExpr:
		a.equality(e)
	case *LogicalExpr:
		a.logical(e)
	}
}

// operand checks one side of an arithmetic operator.
func (a *analyzer) operand(e Expr) {
	a.expr(e, ctxValue)
	if e.IsBoolean() {
		a.errorf(e.Pos(), BooleanOperand, "boolean value used as a number")
	}
}

func (a *analyzer) call(c *FunctionCall, ctx exprCtx) {
	switch c.Name {
	case "input":
		if len(c.Args) != 0 {
			a.errorf(c.At, WrongArgumentCount, "input() takes no arguments")
		}
		for _, arg := range c.Args {
			a.expr(arg, ctxValue)
		}
		return
	case "output":
		if len(c.Args) != 1 {
			a.errorf(c.At, WrongArgumentCount, "output() takes exactly one argument")
		}
		for _, arg := range c.Args {
			a.operand(arg)
		}
	case "debug":
		if len(c.Args) != 1 {
			a.errorf(c.At, WrongArgumentCount, "debug() takes exactly one argument")
		} else if _, ok := c.Args[0].(*IntLiteral); !ok {
			a.errorf(c.Args[0].Pos(), InvalidDebugArgument, "debug() argument must be an integer literal")
		}
	default:
		a.errorf(c.At, UnknownFunction, "unknown function %s", c.Name)
		for _, arg := range c.Args {
			a.expr(arg, ctxValue)
		}
		return
	}
	if ctx != ctxEffect {
		a.errorf(c.At, VoidValue, "%s() does not produce a value", c.Name)
	}
}

func (a *analyzer) equality(e *EqualityExpr) {
	lc, lok := literalValue(e.Left)
	rc, rok := literalValue(e.Right)
	if lok && rok {
		if v, ok := foldComparison(e.Op, lc, rc); ok {
			a.info.constants[e] = v
			return
		}
		a.errorf(e.At, BooleanOperand, "cannot compare %s with %s using %s", e.Left, e.Right, opText(e.Op))
		return
	}
	for _, side := range []Expr{e.Left, e.Right} {
		if lit, ok := side.(*IntLiteral); ok && lit.Value == 0 {
			continue
		}
		a.operand(side)
	}
}

func (a *analyzer) logical(l *LogicalExpr) {
	for _, op := range l.Operands {
		a.expr(op, ctxCondition)
		if !op.IsBoolean() {
			a.errorf(op.Pos(), ConditionNotBoolean, "operand of %s must be of boolean type", opText(l.Ops[0]))
		}
	}
	result := false
	for _, group := range l.groups() {
		all := true
		for _, op := range group {
			v, ok := a.info.constants[op]
			if !ok {
				return
			}
			all = all && v
		}
		result = result || all
	}
	a.info.constants[l] = result
}

// literalValue returns the value of an int or bool literal.
func literalValue(e Expr) (any, bool) {
	switch e := e.(type) {
	case *IntLiteral:
		return e.Value, true
	case *BoolLiteral:
		return e.Value, true
	}
	return nil, false
}

func foldComparison(op TokenType, l, r any) (bool, bool) {
	li, lInt := l.(int)
	ri, rInt := r.(int)
	if lInt && rInt {
		switch op {
		case EQUALS:
			return li == ri, true
		case NOT_EQ:
			return li != ri, true
		case LESS:
			return li < ri, true
		case LESS_EQ:
			return li <= ri, true
		case GREATER:
			return li > ri, true
		case GREATER_EQ:
			return li >= ri, true
		}
		return false, false
	}
	lb, lBool := l.(bool)
	rb, rBool := r.(bool)
	if lBool && rBool {
		switch op {
		case EQUALS:
			return lb == rb, true
		case NOT_EQ:
			return lb != rb, true
		}
	}
	return false, false
}
