package compiler

import (
	"log/slog"

	"github.com/kyberias/HRMC/pkg/asm"
)

// Options configures Compile.
type Options struct {
	// ZeroNames overrides DefaultZeroNames.
	ZeroNames []string
	// MemorySize bounds the cells a program may use; zero means DefaultMemorySize.
	MemorySize int
	// NoOptimize skips the peephole optimizer.
	NoOptimize bool
	// Logger receives stage progress at Debug level. Nil discards it.
	Logger *slog.Logger
}

// Result holds every stage's product. On failure the stages that ran are
// still filled in, so callers can inspect tokens or the tree.
type Result struct {
	Tokens       []Token
	Program      *Program
	Info         *Info
	Symbols      *SymbolTable
	Generated    []asm.Instruction // before optimization
	Instructions []asm.Instruction
	CellsUsed    int
}

// Listing renders the final instructions.
func (r *Result) Listing() string { return asm.Format(r.Instructions) }

// Compile runs source through lexing, parsing, analysis, code generation and
// optimization. The error is a *LexError, SyntaxErrors, ContextErrors,
// *InternalError or a wrapped ErrMemoryExhausted.
func Compile(src string, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	res := &Result{}

	tokens, err := Lex(src)
	res.Tokens = tokens
	if err != nil {
		log.Debug("lex failed", "err", err)
		return res, err
	}
	log.Debug("lexed", "tokens", len(tokens))

	prog, synErrs := Parse(tokens)
	res.Program = prog
	if len(synErrs) > 0 {
		log.Debug("parse failed", "errors", len(synErrs))
		return res, synErrs
	}
	log.Debug("parsed", "statements", len(prog.Stmts))

	info, ctxErrs := Analyze(prog, AnalyzerOptions{ZeroNames: opts.ZeroNames})
	res.Info = info
	if len(ctxErrs) > 0 {
		log.Debug("analysis failed", "errors", len(ctxErrs))
		return res, ctxErrs
	}

	out, err := Generate(prog, info, GenOptions{MemorySize: opts.MemorySize})
	if err != nil {
		log.Debug("codegen failed", "err", err)
		return res, err
	}
	res.Symbols = out.Symbols
	res.Generated = out.Instructions
	res.CellsUsed = out.CellsUsed
	log.Debug("generated", "instructions", len(out.Instructions), "cells", out.CellsUsed)

	res.Instructions = out.Instructions
	if !opts.NoOptimize {
		res.Instructions = Optimize(out.Instructions)
		log.Debug("optimized", "before", len(out.Instructions), "after", len(res.Instructions))
	}
	return res, nil
}
