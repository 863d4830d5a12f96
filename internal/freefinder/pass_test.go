package freefinder

import (
	"testing"

	"checkedc-tempsafety/internal/ir"
)

func declare(m *ir.Module, name string) *ir.Function {
	fn := &ir.Function{Name: name, IsDeclaration: true}
	m.AddFunction(fn)
	return fn
}

func directCall(m *ir.Module, b *ir.BasicBlock, target *ir.Function) *ir.CallInst {
	call := ir.NewCall(m, ir.NewFuncRef(target), nil, nil, "")
	b.Append(call)
	return call
}

// A call to a whitelisted external symbol is not may-free.
func TestWhitelistedCallIsNotMayFree(t *testing.T) {
	m := ir.NewModule("t")
	mallocFn := declare(m, "malloc")

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	b := fn.NewBlock(m, "entry")
	directCall(m, b, mallocFn)
	b.SetTerminator(&ir.ReturnInst{})

	p := New()
	changed, err := p.Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed || len(p.MayFreeFns) != 0 {
		t.Fatalf("expected no may-free functions, got %v", p.MayFreeFns)
	}
}

// A call to an unwhitelisted declaration-only function is directly may-free,
// and propagates to every (transitive) caller.
func TestDirectAndTransitiveMayFree(t *testing.T) {
	m := ir.NewModule("t")
	freeFn := declare(m, "free")

	leaf := &ir.Function{Name: "leaf"}
	m.AddFunction(leaf)
	lb := leaf.NewBlock(m, "entry")
	freeCall := directCall(m, lb, freeFn)
	lb.SetTerminator(&ir.ReturnInst{})

	mid := &ir.Function{Name: "mid"}
	m.AddFunction(mid)
	mb := mid.NewBlock(m, "entry")
	directCall(m, mb, leaf)
	mb.SetTerminator(&ir.ReturnInst{})

	top := &ir.Function{Name: "top"}
	m.AddFunction(top)
	tb := top.NewBlock(m, "entry")
	topCall := directCall(m, tb, mid)
	tb.SetTerminator(&ir.ReturnInst{})

	p := New()
	changed, err := p.Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected the analysis to find may-free functions")
	}
	for _, fn := range []*ir.Function{leaf, mid, top} {
		if !p.MayFreeFns[fn] {
			t.Fatalf("expected %s to be may-free", fn.Name)
		}
	}
	if !p.MayFreeCalls[freeCall] {
		t.Fatalf("expected the direct free() call to be may-free")
	}
	if !p.MayFreeCalls[topCall] {
		t.Fatalf("expected top's call site into mid to be marked may-free by closure")
	}
}

// An indirect call is always may-free.
func TestIndirectCallIsMayFree(t *testing.T) {
	m := ir.NewModule("t")
	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	b := fn.NewBlock(m, "entry")

	fnPtrType := &ir.PointerType{Pointee: ir.I64()}
	slot := ir.NewStackAlloc(m, fn, fnPtrType, false)
	b.Append(slot)
	callee := ir.NewLoad(m, slot.Result, fnPtrType)
	b.Append(callee)
	call := ir.NewCall(m, callee.Result, nil, nil, "")
	b.Append(call)
	b.SetTerminator(&ir.ReturnInst{})

	p := New()
	changed, err := p.Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed || !p.MayFreeFns[fn] || !p.MayFreeCalls[call] {
		t.Fatalf("expected the indirect call site to be may-free")
	}
}

// A per-module key-check helper call never makes its caller may-free,
// even though the helper itself is a declaration.
func TestKeyCheckHelperIsWhitelisted(t *testing.T) {
	m := ir.NewModule("mymod")
	checkFn := declare(m, "mymod_MMPtrKeyCheck")

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	b := fn.NewBlock(m, "entry")
	directCall(m, b, checkFn)
	b.SetTerminator(&ir.ReturnInst{})

	p := New()
	changed, err := p.Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if changed || len(p.MayFreeFns) != 0 {
		t.Fatalf("expected the key-check call to stay non-freeing, got %v", p.MayFreeFns)
	}
}
