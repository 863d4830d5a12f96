// Package lockinsert implements the Lock-Insertion Pass (C2): it
// rewrites every multi-qual stack slot and global into a locked
// aggregate, so that every remaining reference to the original symbol
// resolves to the non-lock inner field.
package lockinsert

import (
	"checkedc-tempsafety/internal/capability"
	"checkedc-tempsafety/internal/errors"
	"checkedc-tempsafety/internal/ir"
)

const passName = "lock-insertion"

// StackLockValue and GlobalLockValue are the initial lock words §3/§8
// fixes: stack storage starts locked with 1, globals with 2.
const (
	StackLockValue  = 1
	GlobalLockValue = 2
)

// Pass is the C2 lock-insertion pass. It has no state of its own: every
// Run call is a fresh rewrite over the module it is given.
type Pass struct{}

func New() *Pass { return &Pass{} }

func (p *Pass) Name() string { return passName }

// Run rewrites every multi-qual stack slot and global in m. It reports
// true iff the module was changed. It returns a *errors.PassError,
// never a bare error, on a precondition failure (§7); the module is
// left unchanged in that case because the check runs fully before any
// mutation begins.
func (p *Pass) Run(m *ir.Module) (bool, error) {
	changed := false

	for _, g := range m.Globals {
		if g.MultiQualified && g.ThreadLocal {
			return false, errors.NewPreconditionError(passName, errors.ErrThreadLocalMultiQual,
				"thread-local multi-qual storage is not supported", g.Name)
		}
	}

	for _, fn := range m.Functions {
		if fn.IsDeclaration {
			continue
		}
		if rewriteStackSlots(m, fn) {
			changed = true
		}
	}

	globalChanged, err := rewriteGlobals(m)
	if err != nil {
		return changed, err
	}
	if globalChanged {
		changed = true
	}

	return changed, nil
}

// layoutFor chooses the struct layout §4.2 step 1 describes for a
// multi-qual object of inner type t, returning the struct type and the
// field indices of the lock word and the payload.
func layoutFor(t ir.Type) (structType *ir.StructType, lockIdx, payloadIdx int) {
	i64 := ir.I64()
	if capability.IsSafePtr(t) {
		// Padding word at 0 keeps the safe-pointer payload at offset 16,
		// matching the alignment the code generator expects for it.
		return &ir.StructType{Fields: []ir.Type{i64, i64, t}, Align: 16}, 1, 2
	}
	return &ir.StructType{Fields: []ir.Type{i64, t}}, 0, 1
}

// rewriteStackSlots scans fn's entry block for multi-qual StackAllocInsts
// (the IR guarantees they all live there) and rewrites each in place.
func rewriteStackSlots(m *ir.Module, fn *ir.Function) bool {
	entry := fn.Entry()
	if entry == nil {
		return false
	}

	var targets []*ir.StackAllocInst
	for _, inst := range entry.Instructions {
		if alloc, ok := inst.(*ir.StackAllocInst); ok && alloc.MultiQualified {
			targets = append(targets, alloc)
		}
	}
	if len(targets) == 0 {
		return false
	}

	for _, old := range targets {
		structType, lockIdx, payloadIdx := layoutFor(old.AllocatedType)

		newAlloc := ir.NewStackAlloc(m, fn, structType, false)
		entry.InsertBefore(old, newAlloc)

		gepLock := ir.NewAggregateGEP(m, newAlloc.Result, lockIdx)
		entry.InsertBefore(old, gepLock)
		storeLock := ir.NewStore(m, gepLock.Result, ir.NewConstInt(StackLockValue, ir.I64()))
		entry.InsertBefore(old, storeLock)

		gepPayload := ir.NewAggregateGEP(m, newAlloc.Result, payloadIdx)
		entry.InsertBefore(old, gepPayload)

		ir.ReplaceAllUsesWith(old.Result, gepPayload.Result)
		entry.Erase(old)
	}

	return true
}

// rewriteGlobals rewrites every multi-qual global in m. All precondition
// checks run before any global is mutated, so a thread-local multi-qual
// global leaves the module untouched (§7).
func rewriteGlobals(m *ir.Module) (bool, error) {
	var targets []*ir.Global
	for _, g := range m.Globals {
		if g.MultiQualified {
			targets = append(targets, g)
		}
	}
	if len(targets) == 0 {
		return false, nil
	}

	for _, g := range targets {
		if g.ThreadLocal {
			return false, errors.NewPreconditionError(passName, errors.ErrThreadLocalMultiQual,
				"thread-local multi-qual storage is not supported", g.Name)
		}
	}

	for _, g := range targets {
		// Common linkage only permits zero-initialization; promote to
		// external so an explicit non-zero lock initializer can attach.
		// ExternallyInitialized is preserved regardless (§4.2 edge cases).
		if capability.HasCommonLinkage(g) {
			capability.SetLinkage(g, ir.LinkageExternal)
		}

		structType, lockIdx, payloadIdx := layoutFor(g.Type)

		var init ir.Initializer
		if g.HasInitializer() {
			fields := make([]ir.Initializer, len(structType.Fields))
			for i := range fields {
				fields[i] = &ir.IntInit{Val: 0, Typ: ir.I64()}
			}
			fields[lockIdx] = &ir.IntInit{Val: GlobalLockValue, Typ: ir.I64()}
			fields[payloadIdx] = g.Initializer
			init = &ir.StructInit{Fields: fields, Typ: structType}
		}

		newGlobal := m.AddGlobal(&ir.Global{
			Name:                  g.Name + "_multiple",
			Type:                  structType,
			Constant:              g.Constant,
			Linkage:               g.Linkage,
			AddressSpace:          g.AddressSpace,
			ThreadLocal:           false,
			ExternallyInitialized: g.ExternallyInitialized,
			Initializer:           init,
			MultiQualified:        false,
			Align:                 16,
		})

		payloadType := structType.Fields[payloadIdx]
		payloadAddr := ir.NewConstGEP(newGlobal.Ref(), []int{payloadIdx},
			&ir.PointerType{Pointee: payloadType, AddressSpace: g.AddressSpace})

		ir.ReplaceAllUsesWith(g.Ref(), payloadAddr)
		m.RemoveGlobal(g)
	}

	return true, nil
}
