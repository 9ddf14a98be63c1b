package compiler

import (
	"testing"
)

func parseSource(t *testing.T, src string) (*Program, SyntaxErrors) {
	t.Helper()
	tokens, err := Lex(src)
	if err != nil {
		t.Fatalf("Lex() error = %v", err)
	}
	return Parse(tokens)
}

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"int a = input();", "int a = input();"},
		{"const int *Zptr = 9;", "const int *Zptr = 9;"},
		{"int * const p = 3;", "const int *p = 3;"},
		{"int *p;", "int *p;"},
		{"int buf[10];", "int buf[10];"},
		{"a = b + c - d;", "(a = (b + c - d));"},
		{"*p = input();", "(*p = input());"},
		{"*p++;", "*p++;"},
		{"output(--a);", "output(--a);"},
		{"x = a * b / c % d;", "(x = (((a * b) / c) % d));"},
		{"x = a + b * c;", "(x = (a + (b * c)));"},
		{"x = ((a) + a) + a;", "(x = ((a + a) + a));"},
		{"if (a == b) output(a); else output(b);", "if (a == b) output(a); else output(b);"},
		{"if (a) {}", "if a { }"},
		{"while (a < b && c != d || e >= f) { a++; }", "while ((a < b) && (c != d) || (e >= f)) { a++; }"},
		{"while ((b = input()) == a) output(b);", "while ((b = input()) == a) output(b);"},
		{"while (true) ;", "while true ;"},
		{";", ";"},
		{"debug(5);\noutput(input());", "debug(5);\noutput(input());"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			prog, errs := parseSource(t, tt.input)
			if len(errs) > 0 {
				t.Fatalf("Parse() errors = %v", errs)
			}
			if got := prog.String(); got != tt.want {
				t.Errorf("Parse() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestParseIfElseChain(t *testing.T) {
	prog, errs := parseSource(t, "if (a != 0) output(a); else if (b != 0) output(b); else output(c);")
	if len(errs) > 0 {
		t.Fatalf("Parse() errors = %v", errs)
	}
	outer, ok := prog.Stmts[0].(*IfStmt)
	if !ok {
		t.Fatalf("expected *IfStmt, got %T", prog.Stmts[0])
	}
	inner, ok := outer.Else.(*IfStmt)
	if !ok {
		t.Fatalf("expected else branch to be *IfStmt, got %T", outer.Else)
	}
	if inner.Else == nil {
		t.Error("inner if lost its else branch")
	}
}

func TestParsePositions(t *testing.T) {
	prog, errs := parseSource(t, "int a;\n  a = input();")
	if len(errs) > 0 {
		t.Fatalf("Parse() errors = %v", errs)
	}
	stmt := prog.Stmts[1].(*ExprStmt)
	if got := stmt.X.Pos(); got != (Pos{Line: 2, Col: 3}) {
		t.Errorf("assignment position = %v, want 2:3", got)
	}
}

func TestParseRecovery(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kinds []SyntaxErrorKind
		stmts int
	}{
		{"missing operand", "int a = ;", []SyntaxErrorKind{UnexpectedToken}, 1},
		{"missing paren then EOF", "output(a;", []SyntaxErrorKind{UnexpectedToken, UnexpectedEndOfFile}, 0},
		{"unclosed block", "while (a != b) {", []SyntaxErrorKind{UnexpectedEndOfFile}, 0},
		{"stray brace", "} output(a);", []SyntaxErrorKind{UnexpectedToken}, 1},
		// "=" is consumed as the missing name, "1" as the missing ';'.
		{"bad declarations", "int = 1; int b = ;", []SyntaxErrorKind{UnexpectedToken, UnexpectedToken, UnexpectedToken}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, errs := parseSource(t, tt.input)
			if len(errs) != len(tt.kinds) {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(tt.kinds))
			}
			for i, e := range errs {
				if e.Kind != tt.kinds[i] {
					t.Errorf("error %d: kind %s, want %s", i, e.Kind, tt.kinds[i])
				}
			}
			if len(prog.Stmts) != tt.stmts {
				t.Errorf("got %d statements, want %d", len(prog.Stmts), tt.stmts)
			}
		})
	}
}

func TestSyntaxErrorMessage(t *testing.T) {
	_, errs := parseSource(t, "int a = ;")
	if len(errs) != 1 {
		t.Fatalf("expected one error, got %v", errs)
	}
	want := `line 1:9: unexpected SEMICOLON ";", expected expression`
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
