// Package compiler translates a small C subset into programs for the
// single-accumulator machine in package asm.
//
// Pipeline: C source → Lex → Parse → Analyze → Generate → Optimize → asm.Instruction list
//
// The language has int scalars, pointers, constant pointers (a compile-time
// address), fixed-size arrays, if/else, while, the arithmetic operators,
// comparisons chained with && and ||, ++/--, and the built-ins input(),
// output(x) and debug(n).
package compiler
