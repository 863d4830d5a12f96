package ir

import "testing"

func TestStackAllocInEntryBlock(t *testing.T) {
	m := NewModule("t")
	fn := &Function{Name: "f", ReturnType: &IntegerType{Width: 32}}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")

	alloc := NewStackAlloc(m, fn, &IntegerType{Width: 32}, true)
	entry.Append(alloc)
	entry.SetTerminator(&ReturnInst{})

	if fn.Entry() != entry {
		t.Fatalf("expected entry() to return the first block")
	}
	if entry.Instructions[0] != alloc {
		t.Fatalf("expected alloc to be first instruction")
	}
	if !alloc.MultiQualified {
		t.Fatalf("expected MultiQualified to survive construction")
	}
}

func TestReplaceAllUsesWith(t *testing.T) {
	m := NewModule("t")
	fn := &Function{Name: "f"}
	m.AddFunction(fn)
	b := fn.NewBlock(m, "entry")

	i32 := &IntegerType{Width: 32}
	alloc := NewStackAlloc(m, fn, i32, false)
	b.Append(alloc)

	store := NewStore(m, alloc.Result, NewConstInt(42, i32))
	b.Append(store)

	newAddr := newResult(m, alloc.Result.Type, "inner")
	ReplaceAllUsesWith(alloc.Result, newAddr)

	if store.Ptr != newAddr {
		t.Fatalf("expected store's pointer operand to be rewritten, got %v", store.Ptr)
	}
	if len(alloc.Result.Uses) != 0 {
		t.Fatalf("expected old value's use list to be drained")
	}
	if len(newAddr.Uses) != 1 || newAddr.Uses[0].User != store {
		t.Fatalf("expected new value to record the transferred use")
	}
}

func TestEraseDropsOperandUses(t *testing.T) {
	m := NewModule("t")
	fn := &Function{Name: "f"}
	m.AddFunction(fn)
	b := fn.NewBlock(m, "entry")

	i32 := &IntegerType{Width: 32}
	alloc := NewStackAlloc(m, fn, i32, false)
	b.Append(alloc)
	load := NewLoad(m, alloc.Result, i32)
	b.Append(load)

	b.Erase(load)

	if len(b.Instructions) != 1 {
		t.Fatalf("expected load to be removed, got %d instructions", len(b.Instructions))
	}
	if len(alloc.Result.Uses) != 0 {
		t.Fatalf("expected erase to drop the use the load made of alloc's result")
	}
}

func TestAggregateGEPFieldPath(t *testing.T) {
	m := NewModule("t")
	i64 := I64()
	i32 := &IntegerType{Width: 32}
	structType := &StructType{Fields: []Type{i64, i32}}
	ptr := newResult(m, &PointerType{Pointee: structType}, "p")

	gep := NewAggregateGEP(m, ptr, 1)
	pt, ok := gep.Result.Type.(*PointerType)
	if !ok || !pt.Pointee.Equal(i32) {
		t.Fatalf("expected gep result to point to field type i32, got %v", gep.Result.Type)
	}
	if len(gep.FieldPath()) != 1 || gep.FieldPath()[0] != 1 {
		t.Fatalf("expected field path [1], got %v", gep.FieldPath())
	}
}

func TestInsertBeforeAndAfterOrdering(t *testing.T) {
	m := NewModule("t")
	fn := &Function{Name: "f"}
	m.AddFunction(fn)
	b := fn.NewBlock(m, "entry")

	i32 := &IntegerType{Width: 32}
	alloc := NewStackAlloc(m, fn, i32, false)
	b.Append(alloc)
	load := NewLoad(m, alloc.Result, i32)
	b.Append(load)

	cast := NewPointerCast(m, alloc.Result, alloc.Result.Type)
	b.InsertBefore(load, cast)

	if b.Instructions[0] != alloc || b.Instructions[1] != cast || b.Instructions[2] != load {
		t.Fatalf("unexpected instruction order after InsertBefore: %v", b.Instructions)
	}

	cast2 := NewPointerCast(m, alloc.Result, alloc.Result.Type)
	b.InsertAfter(alloc, cast2)
	if b.Instructions[1] != cast2 {
		t.Fatalf("unexpected instruction order after InsertAfter: %v", b.Instructions)
	}
}
