package compiler

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/kyberias/HRMC/pkg/cpu"
)

// runProgram compiles src with and without the optimizer, runs both, and
// checks they agree before returning the outputs.
func runProgram(t *testing.T, src string, input, memory []int) []int {
	t.Helper()
	var results [2][]int
	for i, noOpt := range []bool{false, true} {
		res, err := Compile(src, Options{NoOptimize: noOpt})
		if err != nil {
			t.Fatalf("Compile() error = %v", err)
		}
		out, err := cpu.Run(res.Instructions, input, memory)
		if err != nil {
			t.Fatalf("Run() error = %v\n%s", err, res.Listing())
		}
		results[i] = out
	}
	if diff := cmp.Diff(results[1], results[0], cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("optimized run differs (-plain +optimized):\n%s", diff)
	}
	return results[0]
}

func TestEndToEnd(t *testing.T) {
	digitMemory := make([]int, 12)
	digitMemory[10], digitMemory[11] = 10, 100

	tests := []struct {
		name   string
		src    string
		input  []int
		memory []int
		want   []int
	}{
		{
			name:  "copy",
			src:   "while (true) { output(input()); }",
			input: []int{1, 2, 3},
			want:  []int{1, 2, 3},
		},
		{
			name:  "never loops",
			src:   "while (false) { output(input()); }",
			input: []int{1, 2, 3},
			want:  nil,
		},
		{
			name:  "sum of three",
			src:   "output(input() + input() + input());",
			input: []int{1, 2, 7},
			want:  []int{10},
		},
		{
			name:  "mixed chain",
			src:   "output(input() - input() + input() - input());",
			input: []int{7, 11, 13, 17},
			want:  []int{-8},
		},
		{
			name:  "nested parentheses",
			src:   "int a = input(); output(((a) + a) + a);",
			input: []int{1},
			want:  []int{3},
		},
		{
			name:  "if else equal",
			src:   "int a = input(); int b = input(); if (a == b) output(a + b); else output(a - b);",
			input: []int{1, 1},
			want:  []int{2},
		},
		{
			name:  "if else not equal",
			src:   "int a = input(); int b = input(); if (a == b) output(a + b); else output(a - b);",
			input: []int{5, 1},
			want:  []int{4},
		},
		{
			name:  "max with greater",
			src:   "while (true) { int a = input(); int b = input(); if (a > b) output(a); else output(b); }",
			input: []int{3, 7, 9, 2, 4, 4},
			want:  []int{7, 9, 4},
		},
		{
			name:  "max with greater or equal",
			src:   "while (true) { int a = input(); int b = input(); if (a >= b) output(a); else output(b); }",
			input: []int{3, 7, 9, 2, 4, 4},
			want:  []int{7, 9, 4},
		},
		{
			name:  "max with mirrored less",
			src:   "while (true) { int a = input(); int b; if (a < (b = input())) output(b); else output(a); }",
			input: []int{3, 7, 9, 2, 4, 4},
			want:  []int{7, 9, 4},
		},
		{
			name:  "max through a temporary",
			src:   "int a; int b; while (true) { if ((a = input()) <= (b = input())) output(b); else output(a); }",
			input: []int{3, 7, 9, 2, 4, 4},
			want:  []int{7, 9, 4},
		},
		{
			name:  "zero on the left",
			src:   "while (true) { int a = input(); if (0 < a) output(a); }",
			input: []int{5, -5, 0, 1},
			want:  []int{5, 1},
		},
		{
			name:  "or drops zeros",
			src:   "while (true) { int a = input(); if (a < 0 || a > 0) { output(a); } }",
			input: []int{0, 5, -3, 0, 2},
			want:  []int{5, -3, 2},
		},
		{
			name:   "and keeps a range",
			src:    "const int *Ten = 10; while (true) { int a = input(); if (a > 0 && a < *Ten) output(a); }",
			input:  []int{-1, 0, 1, 9, 10, 11, 4},
			memory: []int{10: 10},
			want:   []int{1, 9, 4},
		},
		{
			name:  "constant conditions fold",
			src:   "if (1 == 2) output(input()); else output(input() + input()); while (true && 1 < 2) output(input());",
			input: []int{1, 2, 3, 4},
			want:  []int{3, 3, 4},
		},
		{
			name:  "assignment in condition",
			src:   "int a = input(); int b; while ((b = input()) == a) { output(b); }",
			input: []int{5, 5, 5, 5, 4, 5},
			want:  []int{5, 5, 5},
		},
		{
			name:  "increment and decrement",
			src:   "int a = input(); a++; ++a; output(a);",
			input: []int{10},
			want:  []int{12},
		},
		{
			name:  "post and pre values",
			src:   "int a = input(); output(a++); output(a); output(--a); output(a--); output(a);",
			input: []int{10},
			want:  []int{10, 11, 10, 10, 9},
		},
		{
			name:  "count down",
			src:   "int a = input(); while (a != 0) { output(a); a--; }",
			input: []int{3},
			want:  []int{3, 2, 1},
		},
		{
			name:   "const pointers",
			src:    "const int *A = 5; const int *B = 7; output(*A); output(*A + *B); *A = input(); output(*A - *B);",
			input:  []int{50},
			memory: []int{5: 15, 7: 37},
			want:   []int{15, 52, 13},
		},
		{
			name: "pointer into array",
			src: `
int buf[50];
const int *Z = 30;
int *p = *Z;
output(p);
output(*p);
`,
			memory: func() []int {
				m := make([]int, 100)
				for i := range m {
					m[i] = i + 1
				}
				m[30] = 0
				return m
			}(),
			want: []int{0, 1},
		},
		{
			name: "reverse through a pointer",
			src: `
const int *Zptr = 10;
int buf[3];
int *p = *Zptr;
*p = input(); p++;
*p = input(); p++;
*p = input();
output(*p); p--;
output(*p); p--;
output(*p);
`,
			input: []int{1, 2, 3},
			want:  []int{3, 2, 1},
		},
		{
			name: "compare through pointers",
			src: `
int reserved[4];
const int *addrA = 0;
const int *addrB = 1;
int *a = *addrA;
int *b = *addrB;
if (*a < *b) output(*b); else output(*a);
if (*b < *a) output(*b); else output(*a);
`,
			memory: []int{2, 3, 5, 6},
			want:   []int{6, 5},
		},
		{
			name: "multiply",
			src: `
const int *Zptr = 9;
while (true) {
    int a = input();
    int b = input();
    output(a * b);
}
`,
			input: []int{3, 4, -2, 5, 6, -3, 0, 7, 7, 0},
			want:  []int{12, -10, -18, 0, 0},
		},
		{
			name: "divide and remainder",
			src: `
const int *ZeroPtr = 9;
while (true) {
    int a = input();
    int b = input();
    output(a / b);
    output(a % b);
}
`,
			input: []int{7, 2, 8, 4, 7, 4, 0, 3},
			want:  []int{3, 1, 2, 0, 1, 3, 0, 0},
		},
		{
			name: "digit exploder",
			src: `
const int *ZeroPtr = 9;
const int *TenPtr = 10;
const int *HundredPtr = 11;
while (true) {
    int n = input();
    int hundreds = 0;
    while (n >= *HundredPtr) {
        n = n - *HundredPtr;
        hundreds++;
    }
    int tens = 0;
    while (n >= *TenPtr) {
        n = n - *TenPtr;
        tens++;
    }
    if (hundreds != 0) {
        output(hundreds);
        output(tens);
    } else if (tens != 0) {
        output(tens);
    }
    output(n);
}
`,
			input:  []int{502, 358, 42, 6},
			memory: digitMemory,
			want:   []int{5, 0, 2, 3, 5, 8, 4, 2, 6},
		},
		{
			name:  "declared in a folded-away if",
			src:   "if (false) { int x; } x = input(); output(x);",
			input: []int{5},
			want:  []int{5},
		},
		{
			name:  "declared in a folded-away else",
			src:   "if (true) output(input()); else { int x = input(); } x = input(); output(x);",
			input: []int{1, 2},
			want:  []int{1, 2},
		},
		{
			name:  "declared in a folded-away while",
			src:   "while (false) { int x; int buf[2]; } x = input(); output(x);",
			input: []int{7},
			want:  []int{7},
		},
		{
			name:  "and as a statement",
			src:   "int a = input(); int b = input(); a == b && b == a; output(a);",
			input: []int{3, 4},
			want:  []int{3},
		},
		{
			name:  "or as a statement",
			src:   "int a = input(); int b = input(); a == b || b == a; output(b);",
			input: []int{3, 4},
			want:  []int{4},
		},
		{
			name:  "and statement short circuits",
			src:   "int a = input(); int b = input(); a == b && (b = input()) == a; output(b);",
			input: []int{1, 2, 9},
			want:  []int{2},
		},
		{
			name:  "and statement runs every operand",
			src:   "int a = input(); int b = input(); a == b && (b = input()) == a; output(b);",
			input: []int{1, 1, 9},
			want:  []int{9},
		},
		{
			name:  "debug is silent",
			src:   "debug(7); output(input());",
			input: []int{4},
			want:  []int{4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runProgram(t, tt.src, tt.input, tt.memory)
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("outputs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestComparisonMatrix runs every comparison operator, in both if and while,
// with operands in each position the generator treats differently.
func TestComparisonMatrix(t *testing.T) {
	ops := []struct {
		op   string
		eval func(l, r int) bool
	}{
		{"==", func(l, r int) bool { return l == r }},
		{"!=", func(l, r int) bool { return l != r }},
		{"<", func(l, r int) bool { return l < r }},
		{"<=", func(l, r int) bool { return l <= r }},
		{">", func(l, r int) bool { return l > r }},
		{">=", func(l, r int) bool { return l >= r }},
	}
	forms := []struct {
		name     string
		cond     string
		operands func(a, b int) (int, int)
	}{
		{"variables", "a %s b", func(a, b int) (int, int) { return a, b }},
		{"zero right", "a %s 0", func(a, b int) (int, int) { return a, 0 }},
		{"zero left", "0 %s a", func(a, b int) (int, int) { return 0, a }},
		{"sum left", "a + b %s b", func(a, b int) (int, int) { return a + b, b }},
		{"sum right", "b %s a + b", func(a, b int) (int, int) { return b, a + b }},
	}
	values := []int{-2, 0, 3}

	for _, form := range forms {
		for _, op := range ops {
			cond := fmt.Sprintf(form.cond, op.op)
			ifSrc := fmt.Sprintf("int a = input(); int b = input(); if (%s) output(a); else output(b);", cond)
			whileSrc := fmt.Sprintf("int a = input(); int b = input(); while (%s) { output(a); a = input(); }", cond)

			t.Run(form.name+" "+op.op, func(t *testing.T) {
				for _, a := range values {
					for _, b := range values {
						holds := op.eval(form.operands(a, b))

						want := []int{b}
						if holds {
							want = []int{a}
						}
						if got := runProgram(t, ifSrc, []int{a, b}, nil); !cmp.Equal(want, got) {
							t.Errorf("if (%s) with a=%d b=%d: got %v, want %v", cond, a, b, got, want)
						}

						want = nil
						if holds {
							want = []int{a}
						}
						got := runProgram(t, whileSrc, []int{a, b}, nil)
						if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
							t.Errorf("while (%s) with a=%d b=%d (-want +got):\n%s", cond, a, b, diff)
						}
					}
				}
			})
		}
	}
}
