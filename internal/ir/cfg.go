package ir

// Predecessors computes preds(b) for every block of fn by walking each
// block's terminator successors. The pass suite treats this as
// per-analysis scratch state (§5): nothing in the IR stores it
// permanently, so it is always in sync with the current CFG shape.
func Predecessors(fn *Function) map[*BasicBlock][]*BasicBlock {
	preds := make(map[*BasicBlock][]*BasicBlock, len(fn.Blocks))
	for _, b := range fn.Blocks {
		preds[b] = nil
	}
	for _, b := range fn.Blocks {
		if b.Terminator == nil {
			continue
		}
		for _, succ := range b.Terminator.GetSuccessors() {
			if succ == nil {
				continue
			}
			preds[succ] = append(preds[succ], b)
		}
	}
	return preds
}

// Successors returns the successor blocks of b via its terminator, or
// nil if b has none yet.
func Successors(b *BasicBlock) []*BasicBlock {
	if b.Terminator == nil {
		return nil
	}
	return b.Terminator.GetSuccessors()
}

// ReplaceSuccessor rewrites every terminator in fn that branched to old
// so that it branches to new instead.
func ReplaceSuccessor(fn *Function, old, new *BasicBlock) {
	for _, b := range fn.Blocks {
		if b.Terminator == nil {
			continue
		}
		for i, succ := range b.Terminator.GetSuccessors() {
			if succ == old {
				b.Terminator.SetSuccessor(i, new)
			}
		}
	}
}
