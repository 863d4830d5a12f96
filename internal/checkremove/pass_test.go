package checkremove

import (
	"testing"

	"checkedc-tempsafety/internal/blocksplit"
	"checkedc-tempsafety/internal/ir"
)

func newCheck(m *ir.Module, checkFn *ir.Function, addr *ir.Value) *ir.CallInst {
	return ir.NewCall(m, ir.NewFuncRef(checkFn), []*ir.Value{addr}, nil, "fast")
}

func hasInstruction(b *ir.BasicBlock, inst ir.Instruction) bool {
	for _, cur := range b.Instructions {
		if cur == inst {
			return true
		}
	}
	return false
}

// Scenario E from spec §8: two back-to-back checks on the same address
// with no intervening store or may-free call; the second is redundant.
func TestRedundantCheckRemoved(t *testing.T) {
	m := ir.NewModule("t")
	checkFn := &ir.Function{Name: "MMPtrKeyCheck", IsDeclaration: true}
	m.AddFunction(checkFn)

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")

	i32 := &ir.IntegerType{Width: 32}
	slot := ir.NewStackAlloc(m, fn, i32, false)
	entry.Append(slot)
	check1 := newCheck(m, checkFn, slot.Result)
	entry.Append(check1)
	check2 := newCheck(m, checkFn, slot.Result)
	entry.Append(check2)
	entry.SetTerminator(&ir.ReturnInst{})

	bs := &blocksplit.Pass{MayFreeBBs: map[*ir.BasicBlock]bool{}}
	p := New(bs, false)
	changed, err := p.Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected a check to be removed")
	}
	if p.RemovedCount != 1 {
		t.Fatalf("expected RemovedCount 1, got %d", p.RemovedCount)
	}
	if hasInstruction(entry, check2) {
		t.Fatalf("expected the redundant second check to be erased")
	}
	if !hasInstruction(entry, check1) {
		t.Fatalf("expected the first check to survive")
	}
}

// A store to the checked address between two checks defeats redundancy.
func TestStoreDefeatsRedundancy(t *testing.T) {
	m := ir.NewModule("t")
	checkFn := &ir.Function{Name: "MMPtrKeyCheck", IsDeclaration: true}
	m.AddFunction(checkFn)

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")

	i32 := &ir.IntegerType{Width: 32}
	slot := ir.NewStackAlloc(m, fn, i32, false)
	entry.Append(slot)
	entry.Append(newCheck(m, checkFn, slot.Result))
	entry.Append(ir.NewStore(m, slot.Result, ir.NewConstInt(1, i32)))
	check2 := newCheck(m, checkFn, slot.Result)
	entry.Append(check2)
	entry.SetTerminator(&ir.ReturnInst{})

	bs := &blocksplit.Pass{MayFreeBBs: map[*ir.BasicBlock]bool{}}
	changed, err := New(bs, false).Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected no checks removed once the store invalidates the prior check")
	}
	if !hasInstruction(entry, check2) {
		t.Fatalf("expected the second check to survive")
	}
}

// Scenario F from spec §8: a check preceded only by a may-free block on
// every path must survive, since BBIn is forced empty.
func TestCheckSurvivesAcrossMayFreeBlock(t *testing.T) {
	m := ir.NewModule("t")
	checkFn := &ir.Function{Name: "MMPtrKeyCheck", IsDeclaration: true}
	freeFn := &ir.Function{Name: "free", IsDeclaration: true}
	m.AddFunction(checkFn)
	m.AddFunction(freeFn)

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	b1 := fn.NewBlock(m, "b1")
	b2 := fn.NewBlock(m, "b2")
	b3 := fn.NewBlock(m, "b3")

	i32 := &ir.IntegerType{Width: 32}
	slot := ir.NewStackAlloc(m, fn, i32, false)
	b1.Append(slot)
	check1 := newCheck(m, checkFn, slot.Result)
	b1.Append(check1)
	b1.SetTerminator(ir.NewJump(m, b2))

	freeCall := ir.NewCall(m, ir.NewFuncRef(freeFn), nil, nil, "")
	b2.Append(freeCall)
	b2.SetTerminator(ir.NewJump(m, b3))

	check2 := newCheck(m, checkFn, slot.Result)
	b3.Append(check2)
	b3.SetTerminator(&ir.ReturnInst{})

	bs := &blocksplit.Pass{MayFreeBBs: map[*ir.BasicBlock]bool{b2: true}}
	changed, err := New(bs, false).Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected no checks removed, got a change")
	}
	if !hasInstruction(b3, check2) {
		t.Fatalf("expected the check in b3 to survive the may-free block")
	}
}

func TestCheckRemovalMissingBlockSplitterDependency(t *testing.T) {
	m := ir.NewModule("t")
	_, err := New(&blocksplit.Pass{}, false).Run(m)
	if err == nil {
		t.Fatalf("expected a missing-dependency error")
	}
}

// A diamond CFG where both arms of a BranchInst reach the merge block
// with the address already checked: the merge's check is redundant,
// exercising meetPredecessors' intersection over two real predecessors
// rather than a linear chain of one.
func TestRedundantCheckAcrossDiamondMerge(t *testing.T) {
	m := ir.NewModule("t")
	checkFn := &ir.Function{Name: "MMPtrKeyCheck", IsDeclaration: true}
	m.AddFunction(checkFn)

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")
	left := fn.NewBlock(m, "left")
	right := fn.NewBlock(m, "right")
	merge := fn.NewBlock(m, "merge")

	i32 := &ir.IntegerType{Width: 32}
	slot := ir.NewStackAlloc(m, fn, i32, false)
	entry.Append(slot)
	entry.Append(newCheck(m, checkFn, slot.Result))
	entry.SetTerminator(ir.NewBranch(m, ir.NewConstInt(1, ir.I64()), left, right))

	left.SetTerminator(ir.NewJump(m, merge))
	right.SetTerminator(ir.NewJump(m, merge))

	mergeCheck := newCheck(m, checkFn, slot.Result)
	merge.Append(mergeCheck)
	merge.SetTerminator(&ir.ReturnInst{})

	bs := &blocksplit.Pass{MayFreeBBs: map[*ir.BasicBlock]bool{}}
	p := New(bs, false)
	changed, err := p.Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed || p.RemovedCount != 1 {
		t.Fatalf("expected the merge check to be removed, RemovedCount=%d", p.RemovedCount)
	}
	if hasInstruction(merge, mergeCheck) {
		t.Fatalf("expected the merge check to be erased")
	}
}

// The same diamond, but only one arm checks the address before the
// merge: the intersection of the two predecessors' BBOut is empty, so
// the merge's check must survive.
func TestCheckSurvivesDiamondWithOneUncheckedArm(t *testing.T) {
	m := ir.NewModule("t")
	checkFn := &ir.Function{Name: "MMPtrKeyCheck", IsDeclaration: true}
	m.AddFunction(checkFn)

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")
	left := fn.NewBlock(m, "left")
	right := fn.NewBlock(m, "right")
	merge := fn.NewBlock(m, "merge")

	i32 := &ir.IntegerType{Width: 32}
	slot := ir.NewStackAlloc(m, fn, i32, false)
	entry.Append(slot)
	entry.SetTerminator(ir.NewBranch(m, ir.NewConstInt(1, ir.I64()), left, right))

	left.Append(newCheck(m, checkFn, slot.Result))
	left.SetTerminator(ir.NewJump(m, merge))
	right.SetTerminator(ir.NewJump(m, merge))

	mergeCheck := newCheck(m, checkFn, slot.Result)
	merge.Append(mergeCheck)
	merge.SetTerminator(&ir.ReturnInst{})

	bs := &blocksplit.Pass{MayFreeBBs: map[*ir.BasicBlock]bool{}}
	changed, err := New(bs, false).Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed {
		t.Fatalf("expected no checks removed when only one arm checked first")
	}
	if !hasInstruction(merge, mergeCheck) {
		t.Fatalf("expected the merge check to survive")
	}
}
