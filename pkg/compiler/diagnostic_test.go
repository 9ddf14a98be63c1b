package compiler

import (
	"errors"
	"testing"
)

func TestFormatDiagnostic(t *testing.T) {
	got := FormatDiagnostic("int a = ;\noutput(a);", 1, 9, "boom")
	want := "line 1:9: boom\n" +
		"   1 | int a = ;\n" +
		"     |         ^\n"
	if got != want {
		t.Errorf("FormatDiagnostic() =\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatDiagnosticClamps(t *testing.T) {
	got := FormatDiagnostic("x", 7, 0, "past the end")
	want := "line 1:1: past the end\n" +
		"   1 | x\n" +
		"     | ^\n"
	if got != want {
		t.Errorf("FormatDiagnostic() =\n%s\nwant:\n%s", got, want)
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{
			name: "lexical",
			src:  "a = #;",
			want: "line 1:5: lexical error: unexpected character '#'\n" +
				"   1 | a = #;\n" +
				"     |     ^\n",
		},
		{
			name: "syntax",
			src:  "int a = ;",
			want: "line 1:9: syntax error: unexpected SEMICOLON \";\", expected expression\n" +
				"   1 | int a = ;\n" +
				"     |         ^\n",
		},
		{
			name: "context",
			src:  "int a;\noutput(a);",
			want: "line 2:8: UninitializedVariable: uninitialized variable a\n" +
				"   2 | output(a);\n" +
				"     |        ^\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.src, Options{})
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := Describe(tt.src, err); got != tt.want {
				t.Errorf("Describe() =\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}

	if got := Describe("", errors.New("plain")); got != "plain\n" {
		t.Errorf("Describe(plain) = %q", got)
	}
}
