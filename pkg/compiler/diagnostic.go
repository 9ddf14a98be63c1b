package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// FormatDiagnostic renders msg with the offending source line and a caret
// under col. Coordinates are 1-based and clamped to the source.
func FormatDiagnostic(src string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	line = min(max(line, 1), len(lines))
	col = max(col, 1)

	var b strings.Builder
	fmt.Fprintf(&b, "line %d:%d: %s\n", line, col, msg)
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	return b.String()
}

// Describe renders every diagnostic carried by err against src. Errors that
// carry no position are returned as their message.
func Describe(src string, err error) string {
	var (
		lexErr  *LexError
		synErrs SyntaxErrors
		ctxErrs ContextErrors
	)
	var b strings.Builder
	switch {
	case errors.As(err, &lexErr):
		msg := lexErr.Msg
		if msg == "" {
			msg = fmt.Sprintf("unexpected character %q", lexErr.Char)
		}
		b.WriteString(FormatDiagnostic(src, lexErr.Line, lexErr.Col, "lexical error: "+msg))
	case errors.As(err, &synErrs):
		for _, e := range synErrs {
			b.WriteString(FormatDiagnostic(src, e.Line, e.Col, "syntax error: "+e.message()))
		}
	case errors.As(err, &ctxErrs):
		for _, e := range ctxErrs {
			b.WriteString(FormatDiagnostic(src, e.Pos.Line, e.Pos.Col, fmt.Sprintf("%s: %s", e.Code, e.Message)))
		}
	default:
		return err.Error() + "\n"
	}
	return b.String()
}
