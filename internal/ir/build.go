package ir

import "fmt"

// This file collects the instruction constructors the passes use to
// synthesize new IR. Every constructor wires operand Uses and a fresh
// result Value but does not insert the instruction into a block --
// callers place it with BasicBlock.Append/PushFront/InsertBefore/InsertAfter,
// mirroring how each pass needs precise control over instruction order.

func newResult(m *Module, t Type, hint string) *Value {
	v := &Value{ID: m.nextValueID(), Type: t, Kind: InstResultValue, Name: fmt.Sprintf("%%%s%d", hint, m.valueID)}
	return v
}

// NewStackAlloc builds a stack allocation of allocType in fn, not yet
// inserted into any block.
func NewStackAlloc(m *Module, fn *Function, allocType Type, multi bool) *StackAllocInst {
	inst := &StackAllocInst{ID: m.nextInstID(), AllocatedType: allocType, MultiQualified: multi}
	inst.Result = newResult(m, &PointerType{Pointee: allocType}, "slot")
	inst.Result.DefInst = inst
	return inst
}

// NewLoad builds a load of resultType through ptr.
func NewLoad(m *Module, ptr *Value, resultType Type) *LoadInst {
	inst := &LoadInst{ID: m.nextInstID(), Ptr: ptr}
	inst.Result = newResult(m, resultType, "v")
	inst.Result.DefInst = inst
	addUse(ptr, inst, 0)
	return inst
}

// NewStore builds a store of val to ptr.
func NewStore(m *Module, ptr, val *Value) *StoreInst {
	inst := &StoreInst{ID: m.nextInstID(), Ptr: ptr, Val: val}
	addUse(ptr, inst, 0)
	addUse(val, inst, 1)
	return inst
}

// fieldType walks fieldPath through t, which must ultimately be a
// *StructType at every step, and returns the type at that path.
func fieldType(t Type, fieldPath []int) Type {
	cur := t
	for _, idx := range fieldPath {
		st, ok := cur.(*StructType)
		if !ok || idx < 0 || idx >= len(st.Fields) {
			return nil
		}
		cur = st.Fields[idx]
	}
	return cur
}

// NewAggregateGEP builds a constant-indexed address computation into the
// aggregate base points to, addressing fieldPath below the pointee.
func NewAggregateGEP(m *Module, base *Value, fieldPath ...int) *AggregateGEPInst {
	ptrType, ok := base.Type.(*PointerType)
	if !ok {
		panic("NewAggregateGEP: base is not a pointer: " + base.Type.String())
	}
	elemType := fieldType(ptrType.Pointee, fieldPath)
	if elemType == nil {
		panic("NewAggregateGEP: field path does not resolve inside " + ptrType.Pointee.String())
	}
	indices := append([]int{0}, fieldPath...)
	inst := &AggregateGEPInst{ID: m.nextInstID(), Base: base, Indices: indices}
	inst.Result = newResult(m, &PointerType{Pointee: elemType, AddressSpace: ptrType.AddressSpace}, "gep")
	inst.Result.DefInst = inst
	addUse(base, inst, 0)
	return inst
}

// NewExtractField builds a value-level projection of field idx out of agg.
func NewExtractField(m *Module, agg *Value, idx int) *ExtractFieldInst {
	st, ok := agg.Type.(*StructType)
	if !ok || idx < 0 || idx >= len(st.Fields) {
		panic("NewExtractField: invalid field index")
	}
	inst := &ExtractFieldInst{ID: m.nextInstID(), Agg: agg, Index: idx}
	inst.Result = newResult(m, st.Fields[idx], "ext")
	inst.Result.DefInst = inst
	addUse(agg, inst, 0)
	return inst
}

// NewInsertField builds a copy of agg with field idx replaced by elem.
func NewInsertField(m *Module, agg *Value, idx int, elem *Value) *InsertFieldInst {
	inst := &InsertFieldInst{ID: m.nextInstID(), Agg: agg, Index: idx, Elem: elem}
	inst.Result = newResult(m, agg.Type, "ins")
	inst.Result.DefInst = inst
	addUse(agg, inst, 0)
	addUse(elem, inst, 1)
	return inst
}

// NewCall builds a call to callee with args. resultType may be nil for
// a void call.
func NewCall(m *Module, callee *Value, args []*Value, resultType Type, conv string) *CallInst {
	inst := &CallInst{ID: m.nextInstID(), Callee: callee, Args: append([]*Value(nil), args...), CallingConv: conv}
	addUse(callee, inst, 0)
	for i, a := range args {
		addUse(a, inst, i+1)
	}
	if resultType != nil {
		inst.Result = newResult(m, resultType, "call")
		inst.Result.DefInst = inst
	}
	return inst
}

// NewPointerCast builds a no-op reinterpretation of src as resultType.
func NewPointerCast(m *Module, src *Value, resultType Type) *PointerCastInst {
	inst := &PointerCastInst{ID: m.nextInstID(), Src: src}
	inst.Result = newResult(m, resultType, "cast")
	inst.Result.DefInst = inst
	addUse(src, inst, 0)
	return inst
}

// NewJump builds an unconditional branch to target.
func NewJump(m *Module, target *BasicBlock) *JumpInst {
	return &JumpInst{ID: m.nextInstID(), Target: target}
}

// NewBranch builds a two-way conditional branch on cond, a value this
// IR assumes was already computed elsewhere (there is no comparison
// instruction in this layer to produce one).
func NewBranch(m *Module, cond *Value, trueBlock, falseBlock *BasicBlock) *BranchInst {
	inst := &BranchInst{ID: m.nextInstID(), Cond: cond, TrueBlock: trueBlock, FalseBlock: falseBlock}
	addUse(cond, inst, 0)
	return inst
}
