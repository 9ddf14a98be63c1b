package compiler

import (
	"slices"

	"github.com/kyberias/HRMC/pkg/asm"
)

// Pass is one peephole rewrite over an instruction list. A pass never
// mutates its input.
type Pass struct {
	Name string
	Fn   func(prog []asm.Instruction) []asm.Instruction
}

// Passes is the optimizer pipeline in the order it runs.
var Passes = []Pass{
	{"redundant-reload", elideRedundantReload},
	{"bump-reload", elideBumpReload},
	{"dead-after-jump", removeDeadAfterJump},
	{"merge-labels", mergeLabels},
	{"jump-to-next", removeJumpToNext},
	{"unused-labels", removeUnusedLabels},
}

// Optimize runs Passes until the program stops changing, so optimizing an
// optimized program is a no-op.
func Optimize(prog []asm.Instruction) []asm.Instruction {
	return RunPasses(prog, Passes)
}

// RunPasses applies passes in order, repeating the whole list to a fixed point.
func RunPasses(prog []asm.Instruction, passes []Pass) []asm.Instruction {
	cur := slices.Clone(prog)
	// Every pass only removes or retargets instructions, so the loop ends.
	for {
		next := cur
		for _, p := range passes {
			next = p.Fn(next)
		}
		if slices.Equal(next, cur) {
			return next
		}
		cur = next
	}
}

// elideRedundantReload drops the second load in
// COPYFROM a; COPYTO ...; COPYFROM a. A store writes the accumulator itself,
// so even a store that lands on a leaves mem[a] equal to the accumulator.
func elideRedundantReload(prog []asm.Instruction) []asm.Instruction {
	out := make([]asm.Instruction, 0, len(prog))
	for i := 0; i < len(prog); i++ {
		ins := prog[i]
		out = append(out, ins)
		if ins.Op != asm.CopyFrom {
			continue
		}
		j := i + 1
		for j < len(prog) && (prog[j].Op == asm.CopyTo || prog[j].Op == asm.CopyToIndirect) {
			out = append(out, prog[j])
			j++
		}
		if j < len(prog) && prog[j] == ins {
			j++
		}
		i = j - 1
	}
	return out
}

// elideBumpReload drops COPYFROM a right after BUMPUP a or BUMPDN a; the bump
// already left mem[a] in the accumulator.
func elideBumpReload(prog []asm.Instruction) []asm.Instruction {
	out := make([]asm.Instruction, 0, len(prog))
	for i, ins := range prog {
		if ins.Op == asm.CopyFrom && i > 0 {
			prev := prog[i-1]
			if (prev.Op == asm.BumpUp || prev.Op == asm.BumpDown) && prev.Operand == ins.Operand {
				continue
			}
		}
		out = append(out, ins)
	}
	return out
}

// removeDeadAfterJump drops everything between an unconditional JUMP and the
// next label.
func removeDeadAfterJump(prog []asm.Instruction) []asm.Instruction {
	out := make([]asm.Instruction, 0, len(prog))
	dead := false
	for _, ins := range prog {
		if ins.Op == asm.Label {
			dead = false
		}
		if dead {
			continue
		}
		out = append(out, ins)
		if ins.Op == asm.Jump {
			dead = true
		}
	}
	return out
}

// mergeLabels collapses each run of adjacent labels into its first label and
// retargets jumps through the resulting table.
func mergeLabels(prog []asm.Instruction) []asm.Instruction {
	canonical := make(map[string]string)
	out := make([]asm.Instruction, 0, len(prog))
	for i, ins := range prog {
		if ins.Op == asm.Label && i > 0 && prog[i-1].Op == asm.Label {
			first := prog[i-1].Target
			if c, ok := canonical[first]; ok {
				first = c
			}
			canonical[ins.Target] = first
			continue
		}
		out = append(out, ins)
	}
	if len(canonical) == 0 {
		return out
	}
	for i, ins := range out {
		if c, ok := canonical[ins.Target]; ok && ins.Op.IsJump() {
			out[i].Target = c
		}
	}
	return out
}

// removeJumpToNext drops JUMP x when x labels the instruction that follows.
func removeJumpToNext(prog []asm.Instruction) []asm.Instruction {
	out := make([]asm.Instruction, 0, len(prog))
	for i, ins := range prog {
		if ins.Op == asm.Jump && jumpLandsAt(prog, i+1, ins.Target) {
			continue
		}
		out = append(out, ins)
	}
	return out
}

func jumpLandsAt(prog []asm.Instruction, from int, target string) bool {
	for j := from; j < len(prog) && prog[j].Op == asm.Label; j++ {
		if prog[j].Target == target {
			return true
		}
	}
	return false
}

// removeUnusedLabels drops labels no jump refers to.
func removeUnusedLabels(prog []asm.Instruction) []asm.Instruction {
	used := make(map[string]bool)
	for _, ins := range prog {
		if ins.Op.IsJump() {
			used[ins.Target] = true
		}
	}
	out := make([]asm.Instruction, 0, len(prog))
	for _, ins := range prog {
		if ins.Op == asm.Label && !used[ins.Target] {
			continue
		}
		out = append(out, ins)
	}
	return out
}
