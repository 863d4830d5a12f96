package ir

import "fmt"

// Instruction is a typed SSA operation inside a BasicBlock. Implementations
// are pointer-identity types so DefInst/Uses bookkeeping is stable across
// mutation; GetOperands must return operands in the same order SetOperand
// addresses them by slot.
type Instruction interface {
	GetID() int
	GetResult() *Value
	GetOperands() []*Value
	SetOperand(slot int, v *Value)
	GetBlock() *BasicBlock
	SetBlock(b *BasicBlock)
	IsTerminator() bool
	String() string
	GetEffects() []Effect
}

// Terminator is the subset of instructions that may end a BasicBlock.
type Terminator interface {
	Instruction
	GetSuccessors() []*BasicBlock
	SetSuccessor(i int, b *BasicBlock)
}

// StackAllocInst reserves a typed stack slot. The IR guarantees every
// StackAllocInst lives in its function's entry block.
type StackAllocInst struct {
	ID             int
	Result         *Value
	Block          *BasicBlock
	AllocatedType  Type
	MultiQualified bool
}

func (i *StackAllocInst) GetID() int              { return i.ID }
func (i *StackAllocInst) GetResult() *Value       { return i.Result }
func (i *StackAllocInst) GetOperands() []*Value   { return nil }
func (i *StackAllocInst) SetOperand(int, *Value)  {}
func (i *StackAllocInst) GetBlock() *BasicBlock   { return i.Block }
func (i *StackAllocInst) SetBlock(b *BasicBlock)  { i.Block = b }
func (i *StackAllocInst) IsTerminator() bool      { return false }
func (i *StackAllocInst) String() string {
	return fmt.Sprintf("%s = alloca %s%s", i.Result.Name, i.AllocatedType.String(), multiQualSuffix(i.MultiQualified))
}

// IsMultiQualified reports whether this slot carries the multi-qual
// storage qualifier.
func (i *StackAllocInst) IsMultiQualified() bool { return i.MultiQualified }

func multiQualSuffix(multi bool) string {
	if multi {
		return " [multi]"
	}
	return ""
}

// LoadInst reads the value pointed to by Ptr.
type LoadInst struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Ptr    *Value
}

func (i *LoadInst) GetID() int            { return i.ID }
func (i *LoadInst) GetResult() *Value     { return i.Result }
func (i *LoadInst) GetOperands() []*Value { return []*Value{i.Ptr} }
func (i *LoadInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Ptr, i, 0)
		i.Ptr = v
		addUse(v, i, 0)
	}
}
func (i *LoadInst) GetBlock() *BasicBlock  { return i.Block }
func (i *LoadInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *LoadInst) IsTerminator() bool     { return false }
func (i *LoadInst) String() string {
	return fmt.Sprintf("%s = load %s, %s", i.Result.Name, i.Result.Type.String(), i.Ptr.Name)
}

// StoreInst writes Val to the address Ptr.
type StoreInst struct {
	ID    int
	Block *BasicBlock
	Ptr   *Value
	Val   *Value
}

func (i *StoreInst) GetID() int            { return i.ID }
func (i *StoreInst) GetResult() *Value     { return nil }
func (i *StoreInst) GetOperands() []*Value { return []*Value{i.Ptr, i.Val} }
func (i *StoreInst) SetOperand(slot int, v *Value) {
	switch slot {
	case 0:
		removeUse(i.Ptr, i, 0)
		i.Ptr = v
		addUse(v, i, 0)
	case 1:
		removeUse(i.Val, i, 1)
		i.Val = v
		addUse(v, i, 1)
	}
}
func (i *StoreInst) GetBlock() *BasicBlock  { return i.Block }
func (i *StoreInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *StoreInst) IsTerminator() bool     { return false }
func (i *StoreInst) String() string {
	return fmt.Sprintf("store %s, %s", i.Val.Name, i.Ptr.Name)
}

// AggregateGEPInst computes the address of a field inside an aggregate
// pointed to by Base, without touching memory. Indices follows the
// pointer-then-field-path convention: Indices[0] addresses the pointee
// itself (always 0 for the shapes this pass suite produces), and
// Indices[1:] descends the struct field path.
type AggregateGEPInst struct {
	ID      int
	Result  *Value
	Block   *BasicBlock
	Base    *Value
	Indices []int
}

func (i *AggregateGEPInst) GetID() int            { return i.ID }
func (i *AggregateGEPInst) GetResult() *Value     { return i.Result }
func (i *AggregateGEPInst) GetOperands() []*Value { return []*Value{i.Base} }
func (i *AggregateGEPInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Base, i, 0)
		i.Base = v
		addUse(v, i, 0)
	}
}
func (i *AggregateGEPInst) GetBlock() *BasicBlock  { return i.Block }
func (i *AggregateGEPInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *AggregateGEPInst) IsTerminator() bool     { return false }
func (i *AggregateGEPInst) String() string {
	return fmt.Sprintf("%s = gep %s, %v", i.Result.Name, i.Base.Name, i.Indices)
}

// FieldPath returns the struct field path (with the leading pointer
// index dropped), e.g. {0, 1} -> [1].
func (i *AggregateGEPInst) FieldPath() []int {
	if len(i.Indices) == 0 {
		return nil
	}
	return i.Indices[1:]
}

// ExtractFieldInst reads field Index out of the in-register aggregate Agg.
type ExtractFieldInst struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Agg    *Value
	Index  int
}

func (i *ExtractFieldInst) GetID() int            { return i.ID }
func (i *ExtractFieldInst) GetResult() *Value     { return i.Result }
func (i *ExtractFieldInst) GetOperands() []*Value { return []*Value{i.Agg} }
func (i *ExtractFieldInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Agg, i, 0)
		i.Agg = v
		addUse(v, i, 0)
	}
}
func (i *ExtractFieldInst) GetBlock() *BasicBlock  { return i.Block }
func (i *ExtractFieldInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *ExtractFieldInst) IsTerminator() bool     { return false }
func (i *ExtractFieldInst) String() string {
	return fmt.Sprintf("%s = extractfield %s, %d", i.Result.Name, i.Agg.Name, i.Index)
}

// InsertFieldInst returns a copy of Agg with field Index replaced by Elem.
type InsertFieldInst struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Agg    *Value
	Index  int
	Elem   *Value
}

func (i *InsertFieldInst) GetID() int            { return i.ID }
func (i *InsertFieldInst) GetResult() *Value     { return i.Result }
func (i *InsertFieldInst) GetOperands() []*Value { return []*Value{i.Agg, i.Elem} }
func (i *InsertFieldInst) SetOperand(slot int, v *Value) {
	switch slot {
	case 0:
		removeUse(i.Agg, i, 0)
		i.Agg = v
		addUse(v, i, 0)
	case 1:
		removeUse(i.Elem, i, 1)
		i.Elem = v
		addUse(v, i, 1)
	}
}
func (i *InsertFieldInst) GetBlock() *BasicBlock  { return i.Block }
func (i *InsertFieldInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *InsertFieldInst) IsTerminator() bool     { return false }
func (i *InsertFieldInst) String() string {
	return fmt.Sprintf("%s = insertfield %s, %d, %s", i.Result.Name, i.Agg.Name, i.Index, i.Elem.Name)
}

// CallInst is a direct call (Callee.Kind == FuncRefValue) or an indirect
// call through a computed function pointer.
type CallInst struct {
	ID          int
	Result      *Value
	Block       *BasicBlock
	Callee      *Value
	Args        []*Value
	CallingConv string // "" means the default convention; "fast" marks check-call sites.
}

func (i *CallInst) GetID() int        { return i.ID }
func (i *CallInst) GetResult() *Value { return i.Result }
func (i *CallInst) GetOperands() []*Value {
	ops := make([]*Value, 0, len(i.Args)+1)
	ops = append(ops, i.Callee)
	ops = append(ops, i.Args...)
	return ops
}
func (i *CallInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Callee, i, 0)
		i.Callee = v
		addUse(v, i, 0)
		return
	}
	argIdx := slot - 1
	if argIdx >= 0 && argIdx < len(i.Args) {
		removeUse(i.Args[argIdx], i, slot)
		i.Args[argIdx] = v
		addUse(v, i, slot)
	}
}
func (i *CallInst) GetBlock() *BasicBlock  { return i.Block }
func (i *CallInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *CallInst) IsTerminator() bool     { return false }
func (i *CallInst) String() string {
	res := ""
	if i.Result != nil {
		res = i.Result.Name + " = "
	}
	return fmt.Sprintf("%scall %s(%s)", res, i.Callee.Name, argNames(i.Args))
}

// IsDirect reports whether the callee is statically known.
func (i *CallInst) IsDirect() bool { return i.Callee != nil && i.Callee.Kind == FuncRefValue }

// TargetFunction returns the statically known callee, or nil for an
// indirect call.
func (i *CallInst) TargetFunction() *Function {
	if !i.IsDirect() {
		return nil
	}
	return i.Callee.Func
}

func argNames(args []*Value) string {
	s := ""
	for idx, a := range args {
		if idx > 0 {
			s += ", "
		}
		s += a.Name
	}
	return s
}

// PointerCastInst is a type-preserving reinterpretation of a pointer
// (no runtime effect). Check-Removal strips chains of these when
// canonicalizing a check argument's address.
type PointerCastInst struct {
	ID     int
	Result *Value
	Block  *BasicBlock
	Src    *Value
}

func (i *PointerCastInst) GetID() int            { return i.ID }
func (i *PointerCastInst) GetResult() *Value     { return i.Result }
func (i *PointerCastInst) GetOperands() []*Value { return []*Value{i.Src} }
func (i *PointerCastInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Src, i, 0)
		i.Src = v
		addUse(v, i, 0)
	}
}
func (i *PointerCastInst) GetBlock() *BasicBlock  { return i.Block }
func (i *PointerCastInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *PointerCastInst) IsTerminator() bool     { return false }
func (i *PointerCastInst) String() string {
	return fmt.Sprintf("%s = bitcast %s to %s", i.Result.Name, i.Src.Name, i.Result.Type.String())
}

// --- Terminators ---

// ReturnInst ends a function. Value is nil for a void return.
type ReturnInst struct {
	ID    int
	Block *BasicBlock
	Value *Value
}

func (i *ReturnInst) GetID() int        { return i.ID }
func (i *ReturnInst) GetResult() *Value { return nil }
func (i *ReturnInst) GetOperands() []*Value {
	if i.Value == nil {
		return nil
	}
	return []*Value{i.Value}
}
func (i *ReturnInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Value, i, 0)
		i.Value = v
		addUse(v, i, 0)
	}
}
func (i *ReturnInst) GetBlock() *BasicBlock         { return i.Block }
func (i *ReturnInst) SetBlock(b *BasicBlock)        { i.Block = b }
func (i *ReturnInst) IsTerminator() bool            { return true }
func (i *ReturnInst) GetSuccessors() []*BasicBlock  { return nil }
func (i *ReturnInst) SetSuccessor(int, *BasicBlock) {}
func (i *ReturnInst) String() string {
	if i.Value == nil {
		return "ret void"
	}
	return "ret " + i.Value.Name
}

// BranchInst is a two-way conditional branch.
type BranchInst struct {
	ID         int
	Block      *BasicBlock
	Cond       *Value
	TrueBlock  *BasicBlock
	FalseBlock *BasicBlock
}

func (i *BranchInst) GetID() int            { return i.ID }
func (i *BranchInst) GetResult() *Value     { return nil }
func (i *BranchInst) GetOperands() []*Value { return []*Value{i.Cond} }
func (i *BranchInst) SetOperand(slot int, v *Value) {
	if slot == 0 {
		removeUse(i.Cond, i, 0)
		i.Cond = v
		addUse(v, i, 0)
	}
}
func (i *BranchInst) GetBlock() *BasicBlock  { return i.Block }
func (i *BranchInst) SetBlock(b *BasicBlock) { i.Block = b }
func (i *BranchInst) IsTerminator() bool     { return true }
func (i *BranchInst) GetSuccessors() []*BasicBlock {
	return []*BasicBlock{i.TrueBlock, i.FalseBlock}
}
func (i *BranchInst) SetSuccessor(idx int, b *BasicBlock) {
	switch idx {
	case 0:
		i.TrueBlock = b
	case 1:
		i.FalseBlock = b
	}
}
func (i *BranchInst) String() string {
	return fmt.Sprintf("br %s, %s, %s", i.Cond.Name, i.TrueBlock.Label, i.FalseBlock.Label)
}

// JumpInst is an unconditional branch.
type JumpInst struct {
	ID     int
	Block  *BasicBlock
	Target *BasicBlock
}

func (i *JumpInst) GetID() int                  { return i.ID }
func (i *JumpInst) GetResult() *Value           { return nil }
func (i *JumpInst) GetOperands() []*Value       { return nil }
func (i *JumpInst) SetOperand(int, *Value)      {}
func (i *JumpInst) GetBlock() *BasicBlock       { return i.Block }
func (i *JumpInst) SetBlock(b *BasicBlock)      { i.Block = b }
func (i *JumpInst) IsTerminator() bool          { return true }
func (i *JumpInst) GetSuccessors() []*BasicBlock { return []*BasicBlock{i.Target} }
func (i *JumpInst) SetSuccessor(idx int, b *BasicBlock) {
	if idx == 0 {
		i.Target = b
	}
}
func (i *JumpInst) String() string { return "jmp " + i.Target.Label }
