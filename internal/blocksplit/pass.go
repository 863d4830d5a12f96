// Package blocksplit implements the Block-Splitter Pass (C5): it splits
// basic blocks so each may-free call the Free-Finder found is the
// penultimate instruction of its own block, clearing the way for the
// Check-Removal pass's dataflow analysis to treat may-free calls as
// block boundaries.
package blocksplit

import (
	"sort"

	"checkedc-tempsafety/internal/errors"
	"checkedc-tempsafety/internal/freefinder"
	"checkedc-tempsafety/internal/ir"
)

const passName = "block-splitter"

// Pass is the C5 pass. It depends on a completed Free-Finder analysis,
// supplied at construction time (§6: Block-Splitter requires Free-Finder).
type Pass struct {
	analysis   *freefinder.Pass
	MayFreeBBs map[*ir.BasicBlock]bool
}

// New builds a block-splitter that consumes analysis's MayFreeCalls.
// analysis.Run must have already populated MayFreeCalls by the time
// Run is called.
func New(analysis *freefinder.Pass) *Pass {
	return &Pass{analysis: analysis}
}

func (p *Pass) Name() string { return passName }

// Run splits around every may-free call in m. The worklist is
// materialized from the Free-Finder's result once, up front, per §9:
// splitting while iterating is safe because each split preserves the
// identity of the call instruction it is centered on.
func (p *Pass) Run(m *ir.Module) (bool, error) {
	p.MayFreeBBs = make(map[*ir.BasicBlock]bool)
	if p.analysis == nil || p.analysis.MayFreeCalls == nil {
		return false, errors.NewMissingDependencyError(passName, "free-finder")
	}

	worklist := make([]*ir.CallInst, 0, len(p.analysis.MayFreeCalls))
	for call := range p.analysis.MayFreeCalls {
		worklist = append(worklist, call)
	}
	sort.Slice(worklist, func(i, j int) bool { return worklist[i].ID < worklist[j].ID })

	changed := false
	for _, call := range worklist {
		b := call.Block
		if b == nil || b.Parent == nil {
			continue
		}
		middle := splitAroundCall(m, b.Parent, b, call)
		p.MayFreeBBs[middle] = true
		changed = true
	}
	return changed, nil
}

func indexOf(b *ir.BasicBlock, inst ir.Instruction) int {
	for i, cur := range b.Instructions {
		if cur == inst {
			return i
		}
	}
	return -1
}

// splitBlockBefore moves b's instructions from idx onward, plus its
// terminator, into a fresh successor block linked by an unconditional
// jump, and returns that successor.
func splitBlockBefore(m *ir.Module, fn *ir.Function, b *ir.BasicBlock, idx int) *ir.BasicBlock {
	tail := append([]ir.Instruction(nil), b.Instructions[idx:]...)
	b.Instructions = b.Instructions[:idx]

	succ := fn.NewBlock(m, b.Label+".split")
	// NewBlock appended succ at the end; drop that copy so InsertBlockAfter
	// places it exactly once, right after b.
	fn.Blocks = fn.Blocks[:len(fn.Blocks)-1]
	fn.InsertBlockAfter(b, succ)

	for _, inst := range tail {
		inst.SetBlock(succ)
	}
	succ.Instructions = tail
	succ.Terminator = b.Terminator
	if succ.Terminator != nil {
		succ.Terminator.SetBlock(succ)
	}

	b.SetTerminator(ir.NewJump(m, succ))
	return succ
}

// splitAroundCall implements §4.5: it isolates call into its own block,
// followed only by a jump, and returns that block.
func splitAroundCall(m *ir.Module, fn *ir.Function, b *ir.BasicBlock, call *ir.CallInst) *ir.BasicBlock {
	idx := indexOf(b, call)
	middle := b
	if idx > 0 {
		middle = splitBlockBefore(m, fn, b, idx)
	}
	splitBlockBefore(m, fn, middle, 1)
	return middle
}
