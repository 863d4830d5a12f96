// Package capability is the read-only IR query layer (C1 in the design
// overview): predicates and helpers that identify single-ptr, array-ptr,
// multi-qual storage, and key-check call sites. Nothing here mutates the
// module; every other pass is built on top of these primitives instead
// of re-deriving them.
package capability

import (
	"strings"

	"checkedc-tempsafety/internal/ir"
)

// Name suffixes the runtime's check helpers are known by. A per-module
// variant is spelled "<module>_" + one of these; both forms satisfy
// IsCheckCall because the suffix match ignores the prefix.
const (
	SinglePtrCheckName = "MMPtrKeyCheck"
	ArrayPtrCheckName  = "MMArrayPtrKeyCheck"
)

// IsSinglePtr reports whether t is the single-ptr safe-pointer kind.
func IsSinglePtr(t ir.Type) bool {
	_, ok := t.(*ir.SinglePtrType)
	return ok
}

// IsArrayPtr reports whether t is the array-ptr safe-pointer kind.
func IsArrayPtr(t ir.Type) bool {
	_, ok := t.(*ir.ArrayPtrType)
	return ok
}

// IsSafePtr reports whether t is either safe-pointer kind.
func IsSafePtr(t ir.Type) bool {
	return IsSinglePtr(t) || IsArrayPtr(t)
}

// AggregateOf returns the { raw[, key[, keylock]] } struct layout a
// safe-pointer type lowers to, or nil if t is not a safe pointer.
func AggregateOf(t ir.Type) *ir.StructType {
	switch st := t.(type) {
	case *ir.SinglePtrType:
		return st.AggregateType()
	case *ir.ArrayPtrType:
		return st.AggregateType()
	default:
		return nil
	}
}

// MultiQualifiedStorage is satisfied by both ir.StackAllocInst and
// ir.Global, the two storage kinds the multi-qual qualifier can attach to.
type MultiQualifiedStorage interface {
	IsMultiQualified() bool
}

// IsMultiQualified reports whether storage carries the multi-qual
// attribute.
func IsMultiQualified(storage MultiQualifiedStorage) bool {
	return storage.IsMultiQualified()
}

// IsCheckCall reports whether inst invokes a key-check helper, under
// either its bare or per-module-prefixed spelling.
func IsCheckCall(inst ir.Instruction) bool {
	return CheckKindOf(inst) != NotAKeyCheck
}

// CheckKind distinguishes which safe-pointer kind a key-check call
// validates.
type CheckKind int

const (
	NotAKeyCheck CheckKind = iota
	SingleCheck
	ArrayCheck
)

// CheckKindOf classifies inst, or returns NotAKeyCheck if it is not a
// call to a key-check helper.
func CheckKindOf(inst ir.Instruction) CheckKind {
	call, ok := inst.(*ir.CallInst)
	if !ok || call.Callee == nil {
		return NotAKeyCheck
	}
	return CheckKindOfName(call.Callee.Name)
}

// CheckKindOfName classifies a bare or per-module-prefixed symbol name
// as a key-check helper, the same rule CheckKindOf applies to a call's
// callee. Free-finder uses this to recognize a function definition as a
// key-check helper, not just a call to one.
func CheckKindOfName(name string) CheckKind {
	switch {
	case strings.HasSuffix(name, ArrayPtrCheckName):
		return ArrayCheck
	case strings.HasSuffix(name, SinglePtrCheckName):
		return SingleCheck
	default:
		return NotAKeyCheck
	}
}

// IsCheckHelperName reports whether name is a bare or
// per-module-prefixed key-check helper name.
func IsCheckHelperName(name string) bool {
	return CheckKindOfName(name) != NotAKeyCheck
}

// PointeeOf returns the element type of a safe pointer or raw pointer,
// or nil if t is neither.
func PointeeOf(t ir.Type) ir.Type {
	switch v := t.(type) {
	case *ir.SinglePtrType:
		return v.Pointee
	case *ir.ArrayPtrType:
		return v.Pointee
	case *ir.PointerType:
		return v.Pointee
	default:
		return nil
	}
}

// ElementTypeOfPointer returns the pointee of a raw PointerType, or nil
// if t is not a raw pointer. Unlike PointeeOf it does not unwrap
// safe-pointer kinds, matching the load/store well-formedness check in
// the type-harmonization pass, which only ever compares against raw
// pointer operands.
func ElementTypeOfPointer(t ir.Type) ir.Type {
	pt, ok := t.(*ir.PointerType)
	if !ok {
		return nil
	}
	return pt.Pointee
}

// AddressSpaceOf returns the address space of a Global or the pointee
// type of a StackAllocInst's result (stack slots have no notion of a
// non-default address space, so this is always 0 for them).
func AddressSpaceOf(storage interface{}) int {
	switch s := storage.(type) {
	case *ir.Global:
		return s.AddressSpace
	case *ir.StackAllocInst:
		return 0
	default:
		return 0
	}
}

// LinkageOf returns g's linkage.
func LinkageOf(g *ir.Global) ir.Linkage { return g.Linkage }

// HasCommonLinkage reports whether g uses common linkage (the
// zero-initialized, mergeable linkage kind promoted away by C2).
func HasCommonLinkage(g *ir.Global) bool { return g.Linkage == ir.LinkageCommon }

// HasInitializer reports whether g was given an explicit initializer.
func HasInitializer(g *ir.Global) bool { return g.HasInitializer() }

// SetLinkage installs l as g's linkage.
func SetLinkage(g *ir.Global, l ir.Linkage) { g.Linkage = l }

// SetAlignment installs align as g's alignment.
func SetAlignment(g *ir.Global, align int) { g.Align = align }
