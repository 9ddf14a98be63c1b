package compiler

import (
	"fmt"
	"strings"
)

// Parser consumes the flat token slice produced by the Lexer and builds an AST.
//
// Grammar:
//
//	program        = statement* EOF
//	statement      = varDecl | block | ifStmt | whileStmt | expression ";" | ";"
//	varDecl        = ["const"] "int" ["*"] ["const"] IDENTIFIER ["[" INTEGER "]"] ["=" expression] ";"
//	block          = "{" statement* "}"
//	ifStmt         = "if" "(" expression ")" statement ["else" statement]
//	whileStmt      = "while" "(" expression ")" statement
//	expression     = equality (("&&" | "||") equality)*
//	equality       = additive [("==" | "!=" | "<" | "<=" | ">" | ">=") additive]
//	additive       = multiplicative (("+" | "-") multiplicative)*
//	multiplicative = primary (("*" | "/" | "%") primary)*
//	primary        = INTEGER | "true" | "false" | "(" expression ")" | variable
//	variable       = ["*"] ["++" | "--"] IDENTIFIER
//	                 ( "(" [expression] ")" | "=" expression | ["++" | "--"] )
//
// The parser never stops at the first mistake. A token that does not fit is
// recorded, consumed and replaced by a synthetic token of the wanted type, so
// one pass reports every syntax error. Running out of input where a token is
// required is recorded once and ends the parse.
type Parser struct {
	tokens []Token
	pos    int
	errs   SyntaxErrors
	eof    bool // an UnexpectedEndOfFile has been recorded
}

// SyntaxErrorKind classifies a syntax error.
type SyntaxErrorKind int

const (
	UnexpectedToken SyntaxErrorKind = iota
	UnexpectedEndOfFile
)

func (k SyntaxErrorKind) String() string {
	if k == UnexpectedEndOfFile {
		return "UnexpectedEndOfFile"
	}
	return "UnexpectedToken"
}

// SyntaxError is one recoverable parse error.
type SyntaxError struct {
	Kind SyntaxErrorKind
	Line int
	Col  int
	Want string // token type name, or "statement" / "expression"
	Got  Token
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.message())
}

func (e *SyntaxError) message() string {
	if e.Kind == UnexpectedEndOfFile {
		return "unexpected end of file, expected " + e.Want
	}
	return fmt.Sprintf("unexpected %s %q, expected %s", e.Got.Type, e.Got.Lexeme, e.Want)
}

// SyntaxErrors is the ordered list of errors from one parse.
type SyntaxErrors []*SyntaxError

func (es SyntaxErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "\n")
}

func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != EOF {
		end := Token{Type: EOF, Line: 1, Col: 1}
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1]
			end.Line, end.Col = last.Line, last.Col+len(last.Lexeme)
		}
		tokens = append(tokens[:len(tokens):len(tokens)], end)
	}
	return &Parser{tokens: tokens}
}

// Parse builds the program from tokens. The returned list is empty when the
// source is syntactically valid; otherwise the tree must not be analyzed.
func Parse(tokens []Token) (*Program, SyntaxErrors) {
	p := NewParser(tokens)
	prog := p.ParseProgram()
	return prog, p.errs
}

// Errors returns the syntax errors recorded so far.
func (p *Parser) Errors() SyntaxErrors { return p.errs }

// ParseProgram parses statements until EOF.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.eof && p.peek().Type != EOF {
		if s := p.parseStatement(); s != nil {
			prog.Stmts = append(prog.Stmts, s)
		}
	}
	return prog
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[p.pos]
}

// advance consumes the current token and returns it. EOF is never consumed.
func (p *Parser) advance() Token {
	tok := p.peek()
	if tok.Type != EOF {
		p.pos++
	}
	return tok
}

// accept consumes the current token if it has type tt.
func (p *Parser) accept(tt TokenType) bool {
	if p.peek().Type == tt {
		p.advance()
		return true
	}
	return false
}

func posOf(tok Token) Pos { return Pos{Line: tok.Line, Col: tok.Col} }

// unexpected records an error against tok. At EOF it records
// UnexpectedEndOfFile once and marks the parse finished.
func (p *Parser) unexpected(tok Token, want string) {
	if tok.Type == EOF {
		if !p.eof {
			p.errs = append(p.errs, &SyntaxError{Kind: UnexpectedEndOfFile, Line: tok.Line, Col: tok.Col, Want: want, Got: tok})
		}
		p.eof = true
		return
	}
	p.errs = append(p.errs, &SyntaxError{Kind: UnexpectedToken, Line: tok.Line, Col: tok.Col, Want: want, Got: tok})
}

// expect consumes a token of type tt. On mismatch the offending token is
// consumed and a synthetic token of type tt is returned in its place; ok is
// false only when input ran out.
func (p *Parser) expect(tt TokenType) (tok Token, ok bool) {
	cur := p.peek()
	if cur.Type == tt {
		return p.advance(), true
	}
	p.unexpected(cur, tt.String())
	if cur.Type == EOF {
		return Token{}, false
	}
	p.advance()
	return Token{Type: tt, Line: cur.Line, Col: cur.Col}, true
}

func (p *Parser) parseStatement() Stmt {
	tok := p.peek()
	switch tok.Type {
	case SEMICOLON:
		p.advance()
		return &EmptyStmt{At: posOf(tok)}
	case LBRACE:
		return p.parseBlock()
	case IF:
		return p.parseIf()
	case WHILE:
		return p.parseWhile()
	case INT, CONST:
		return p.parseVarDecl()
	case IDENTIFIER, STAR, PLUS_PLUS, MINUS_MINUS, LPAREN, INTEGER, TRUE, FALSE:
		return p.parseExprStmt()
	}
	p.unexpected(tok, "statement")
	p.advance()
	return nil
}

func (p *Parser) parseBlock() Stmt {
	open, ok := p.expect(LBRACE)
	if !ok {
		return nil
	}
	block := &BlockStmt{At: posOf(open)}
	for !p.eof && p.peek().Type != RBRACE && p.peek().Type != EOF {
		if s := p.parseStatement(); s != nil {
			block.Stmts = append(block.Stmts, s)
		}
	}
	if _, ok := p.expect(RBRACE); !ok {
		return nil
	}
	return block
}

// parseCondition handles "(" expression ")".
func (p *Parser) parseCondition() Expr {
	if _, ok := p.expect(LPAREN); !ok {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if _, ok := p.expect(RPAREN); !ok {
		return nil
	}
	return cond
}

func (p *Parser) parseIf() Stmt {
	kw := p.advance()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	then := p.parseStatement()
	if then == nil && p.eof {
		return nil
	}
	s := &IfStmt{At: posOf(kw), Cond: cond, Then: then}
	if p.accept(ELSE) {
		s.Else = p.parseStatement()
		if s.Else == nil && p.eof {
			return nil
		}
	}
	if s.Then == nil {
		s.Then = &EmptyStmt{At: posOf(kw)}
	}
	return s
}

func (p *Parser) parseWhile() Stmt {
	kw := p.advance()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseStatement()
	if body == nil {
		if p.eof {
			return nil
		}
		body = &EmptyStmt{At: posOf(kw)}
	}
	return &WhileStmt{At: posOf(kw), Cond: cond, Body: body}
}

// parseVarDecl handles every declaration form, including the older
// "int * const x = N;" spelling of a constant pointer.
func (p *Parser) parseVarDecl() Stmt {
	start := p.peek()
	d := &VariableDecl{At: posOf(start)}
	d.IsConst = p.accept(CONST)
	if _, ok := p.expect(INT); !ok {
		return nil
	}
	d.IsPointer = p.accept(STAR)
	if d.IsPointer && p.accept(CONST) {
		d.IsConst = true
	}
	name, ok := p.expect(IDENTIFIER)
	if !ok {
		return nil
	}
	d.Name = name.Lexeme
	if p.accept(LBRACKET) {
		size, ok := p.expect(INTEGER)
		if !ok {
			return nil
		}
		d.IsArray, d.ArraySize = true, size.Value
		if _, ok := p.expect(RBRACKET); !ok {
			return nil
		}
	}
	if p.accept(ASSIGN) {
		if d.Init = p.parseExpression(); d.Init == nil {
			return nil
		}
	}
	if _, ok := p.expect(SEMICOLON); !ok {
		return nil
	}
	return d
}

func (p *Parser) parseExprStmt() Stmt {
	start := p.peek()
	x := p.parseExpression()
	if x == nil {
		return nil
	}
	if _, ok := p.expect(SEMICOLON); !ok {
		return nil
	}
	return &ExprStmt{At: posOf(start), X: x}
}

// parseExpression handles the && / || chain.
func (p *Parser) parseExpression() Expr {
	first := p.parseEquality()
	if first == nil {
		return nil
	}
	if t := p.peek().Type; t != AND_LOGICAL && t != OR_LOGICAL {
		return first
	}
	l := &LogicalExpr{At: first.Pos(), Operands: []Expr{first}}
	for t := p.peek().Type; t == AND_LOGICAL || t == OR_LOGICAL; t = p.peek().Type {
		op := p.advance()
		next := p.parseEquality()
		if next == nil {
			return nil
		}
		l.Ops = append(l.Ops, op.Type)
		l.Operands = append(l.Operands, next)
	}
	return l
}

// parseEquality handles a single, non-chainable comparison.
func (p *Parser) parseEquality() Expr {
	left := p.parseAdditive()
	if left == nil {
		return nil
	}
	if !p.peek().Type.IsComparison() {
		return left
	}
	op := p.advance()
	right := p.parseAdditive()
	if right == nil {
		return nil
	}
	return &EqualityExpr{At: left.Pos(), Op: op.Type, Left: left, Right: right}
}

// parseAdditive handles + and -.
func (p *Parser) parseAdditive() Expr {
	first := p.parseMultiplicative()
	if first == nil {
		return nil
	}
	if t := p.peek().Type; t != PLUS && t != MINUS {
		return first
	}
	o := &OperationExpr{At: first.Pos(), Operands: []Expr{first}}
	for t := p.peek().Type; t == PLUS || t == MINUS; t = p.peek().Type {
		op := p.advance()
		next := p.parseMultiplicative()
		if next == nil {
			return nil
		}
		o.Ops = append(o.Ops, op.Type)
		o.Operands = append(o.Operands, next)
	}
	return o
}

// parseMultiplicative handles *, / and %, left-associative.
func (p *Parser) parseMultiplicative() Expr {
	left := p.parsePrimary()
	if left == nil {
		return nil
	}
	for t := p.peek().Type; t == STAR || t == SLASH || t == PERCENT; t = p.peek().Type {
		op := p.advance()
		right := p.parsePrimary()
		if right == nil {
			return nil
		}
		left = &MultiplyExpr{At: left.Pos(), Op: op.Type, Left: left, Right: right}
	}
	return left
}

func (p *Parser) parsePrimary() Expr {
	tok := p.peek()
	switch tok.Type {
	case INTEGER:
		p.advance()
		return &IntLiteral{At: posOf(tok), Value: tok.Value}
	case TRUE, FALSE:
		p.advance()
		return &BoolLiteral{At: posOf(tok), Value: tok.Type == TRUE}
	case LPAREN:
		p.advance()
		e := p.parseExpression()
		if e == nil {
			return nil
		}
		if _, ok := p.expect(RPAREN); !ok {
			return nil
		}
		return e
	case STAR, PLUS_PLUS, MINUS_MINUS, IDENTIFIER:
		return p.parseVariable()
	}

	p.unexpected(tok, "expression")
	if p.eof {
		return nil
	}
	// Leave closing tokens for the caller so one bad operand does not
	// swallow the end of the statement.
	if tok.Type != SEMICOLON && tok.Type != RPAREN && tok.Type != RBRACE {
		p.advance()
	}
	return &IntLiteral{At: posOf(tok)}
}

// parseVariable handles references, calls and assignments, which all start
// with an optional '*' and an optional prefix bump before the name.
func (p *Parser) parseVariable() Expr {
	start := p.peek()
	at := posOf(start)
	indirect := p.accept(STAR)
	incDec := NoIncDec
	switch {
	case p.accept(PLUS_PLUS):
		incDec = PreInc
	case p.accept(MINUS_MINUS):
		incDec = PreDec
	}
	name, ok := p.expect(IDENTIFIER)
	if !ok {
		return nil
	}

	if !indirect && incDec == NoIncDec && p.accept(LPAREN) {
		call := &FunctionCall{At: at, Name: name.Lexeme}
		if p.peek().Type != RPAREN {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
		}
		if _, ok := p.expect(RPAREN); !ok {
			return nil
		}
		return call
	}

	if incDec == NoIncDec && p.accept(ASSIGN) {
		value := p.parseExpression()
		if value == nil {
			return nil
		}
		return &Assignment{At: at, Name: name.Lexeme, Indirect: indirect, Value: value}
	}

	if incDec == NoIncDec {
		switch {
		case p.accept(PLUS_PLUS):
			incDec = PostInc
		case p.accept(MINUS_MINUS):
			incDec = PostDec
		}
	}
	return &VarRef{At: at, Name: name.Lexeme, Indirect: indirect, IncDec: incDec}
}
