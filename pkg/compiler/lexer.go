package compiler

import (
	"fmt"
	"iter"
	"strconv"
)

// keywords maps source text to its keyword TokenType.
var keywords = map[string]TokenType{
	"int":   INT,
	"if":    IF,
	"else":  ELSE,
	"while": WHILE,
	"const": CONST,
	"true":  TRUE,
	"false": FALSE,
}

// LexError is the fatal lexical error: a character no token can start with,
// or an integer literal outside the signed 32-bit range.
type LexError struct {
	Line, Col int
	Char      rune
	Msg       string
}

func (e *LexError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("line %d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("line %d:%d: unexpected character %q", e.Line, e.Col, e.Char)
}

// Lexer holds all mutable state for a single scanning pass over src.
type Lexer struct {
	src  []rune
	pos  int // index of the next rune to consume
	line int // current 1-based source line
	col  int // 1-based column of the next rune
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src), line: 1, col: 1}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

// advance consumes one rune and returns it.
func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\v'
}
func isLetter(r rune) bool { return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isDigit(r rune) bool  { return r >= '0' && r <= '9' }

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && isSpace(l.peek()) {
		l.advance()
	}
}

// skipLineComment discards everything from the current position to end-of-line.
// The opening "//" must already have been consumed.
func (l *Lexer) skipLineComment() {
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
}

// scanIdent collects a run of ASCII letters and classifies it as a keyword
// or identifier. Digits end the run.
func (l *Lexer) scanIdent() Token {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && isLetter(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	tt := IDENTIFIER
	if kw, ok := keywords[lexeme]; ok {
		tt = kw
	}
	return Token{Type: tt, Lexeme: lexeme, Line: line, Col: col}
}

// scanInt collects a decimal literal. The first digit must still be at l.peek().
func (l *Lexer) scanInt() (Token, error) {
	line, col := l.line, l.col
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.peek()) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	v, err := strconv.ParseInt(lexeme, 10, 32)
	if err != nil {
		return Token{}, &LexError{Line: line, Col: col, Msg: fmt.Sprintf("integer literal %s out of range", lexeme)}
	}
	return Token{Type: INTEGER, Lexeme: lexeme, Value: int(v), Line: line, Col: col}, nil
}

// nextToken skips whitespace/comments and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	for {
		l.skipWhitespace()
		if l.pos >= len(l.src) {
			return Token{Type: EOF, Line: l.line, Col: l.col}, nil
		}
		if l.peek() == '/' && l.peek2() == '/' {
			l.advance()
			l.advance()
			l.skipLineComment()
			continue
		}
		break
	}

	ch := l.peek()
	line, col := l.line, l.col

	if isLetter(ch) {
		return l.scanIdent(), nil
	}
	if isDigit(ch) {
		return l.scanInt()
	}

	tok := func(tt TokenType, lexeme string) (Token, error) {
		return Token{Type: tt, Lexeme: lexeme, Line: line, Col: col}, nil
	}
	// pair consumes the second rune of a two-character operator when it matches.
	pair := func(next rune, two TokenType, twoLex string, one TokenType, oneLex string) (Token, error) {
		if l.peek() == next {
			l.advance()
			return tok(two, twoLex)
		}
		return tok(one, oneLex)
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '{':
		return tok(LBRACE, "{")
	case '}':
		return tok(RBRACE, "}")
	case '(':
		return tok(LPAREN, "(")
	case ')':
		return tok(RPAREN, ")")
	case '[':
		return tok(LBRACKET, "[")
	case ']':
		return tok(RBRACKET, "]")
	case ';':
		return tok(SEMICOLON, ";")
	case '*':
		return tok(STAR, "*")
	case '/':
		return tok(SLASH, "/")
	case '%':
		return tok(PERCENT, "%")
	case '+':
		return pair('+', PLUS_PLUS, "++", PLUS, "+")
	case '-':
		return pair('-', MINUS_MINUS, "--", MINUS, "-")
	case '=':
		return pair('=', EQUALS, "==", ASSIGN, "=")
	case '<':
		return pair('=', LESS_EQ, "<=", LESS, "<")
	case '>':
		return pair('=', GREATER_EQ, ">=", GREATER, ">")
	case '!':
		if l.peek() == '=' {
			l.advance()
			return tok(NOT_EQ, "!=")
		}
	case '&':
		if l.peek() == '&' {
			l.advance()
			return tok(AND_LOGICAL, "&&")
		}
	case '|':
		if l.peek() == '|' {
			l.advance()
			return tok(OR_LOGICAL, "||")
		}
	}
	return Token{}, &LexError{Line: line, Col: col, Char: ch}
}

// Tokens scans src lazily. The sequence ends after the EOF token or after
// yielding the first lexical error.
func Tokens(src string) iter.Seq2[Token, error] {
	return func(yield func(Token, error) bool) {
		l := newLexer(src)
		for {
			tok, err := l.nextToken()
			if err != nil {
				yield(Token{}, err)
				return
			}
			if !yield(tok, nil) || tok.Type == EOF {
				return
			}
		}
	}
}

// Lex tokenises src and returns all tokens including the final EOF token.
// It returns a non-nil *LexError on the first illegal character.
func Lex(src string) ([]Token, error) {
	var tokens []Token
	for tok, err := range Tokens(src) {
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}
