package checkremove

import (
	"checkedc-tempsafety/internal/capability"
	"checkedc-tempsafety/internal/ir"
)

// safePtrArgSite is a call argument recognized as the lowered ABI shape
// of a safe-pointer parameter: a pointer followed by its scalar fields.
type safePtrArgSite struct {
	kind        capability.CheckKind
	ptrArgIndex int
}

// insertHoistedChecks implements the optional "add-check-before-call"
// mode (§4.6). For every call argument recognized as a lowered
// safe-pointer, it traces the argument back to the address of the
// in-memory aggregate and, when that address can be established,
// inserts a check call immediately before the original call.
//
// The host IR's assumed-provided instruction set (§3) has no
// comparison instruction, so the null-check branch the source
// description calls for cannot be synthesized here; only the
// unconditional check-call insertion is implemented (see DESIGN.md).
func insertHoistedChecks(m *ir.Module, fn *ir.Function) bool {
	changed := false
	for _, b := range append([]*ir.BasicBlock(nil), fn.Blocks...) {
		for _, inst := range append([]ir.Instruction(nil), b.Instructions...) {
			call, ok := inst.(*ir.CallInst)
			if !ok || capability.IsCheckCall(call) {
				continue
			}
			for _, site := range detectSafePtrArgs(call) {
				addr := traceAggregateAddress(m, b, call, call.Args[site.ptrArgIndex])
				if addr == nil {
					continue
				}
				insertCheckBeforeCall(m, b, call, addr, site.kind)
				changed = true
			}
		}
	}
	return changed
}

// detectSafePtrArgs scans call's arguments for the front-end's lowered
// safe-pointer shape: a raw pointer immediately followed by one i64
// (single-ptr) or two i64s (array-ptr).
func detectSafePtrArgs(call *ir.CallInst) []safePtrArgSite {
	var sites []safePtrArgSite
	args := call.Args
	for i := 0; i < len(args); {
		if _, ok := args[i].Type.(*ir.PointerType); !ok {
			i++
			continue
		}
		switch {
		case i+2 < len(args) && isI64(args[i+1].Type) && isI64(args[i+2].Type):
			sites = append(sites, safePtrArgSite{kind: capability.ArrayCheck, ptrArgIndex: i})
			i += 3
		case i+1 < len(args) && isI64(args[i+1].Type):
			sites = append(sites, safePtrArgSite{kind: capability.SingleCheck, ptrArgIndex: i})
			i += 2
		default:
			i++
		}
	}
	return sites
}

func isI64(t ir.Type) bool {
	it, ok := t.(*ir.IntegerType)
	return ok && it.Width == 64
}

// traceAggregateAddress implements §4.6's two recognized producer
// shapes for a lowered safe-pointer argument's raw-pointer field: an
// ExtractField of a loaded aggregate (using the load's own address, or
// spilling a called aggregate to a fresh stack slot), or a Load whose
// address is an AggregateGEP into a safe-pointer aggregate (using the
// GEP's base). Returns nil if neither shape matches.
func traceAggregateAddress(m *ir.Module, b *ir.BasicBlock, before ir.Instruction, ptrArg *ir.Value) *ir.Value {
	extract, ok := ptrArg.DefInst.(*ir.ExtractFieldInst)
	if ok {
		switch producer := extract.Agg.DefInst.(type) {
		case *ir.LoadInst:
			return producer.Ptr
		case *ir.CallInst:
			slot := ir.NewStackAlloc(m, b.Parent, extract.Agg.Type, false)
			b.Parent.Entry().PushFront(slot)
			store := ir.NewStore(m, slot.Result, extract.Agg)
			b.InsertBefore(before, store)
			return slot.Result
		}
		return nil
	}

	load, ok := ptrArg.DefInst.(*ir.LoadInst)
	if ok {
		if gep, ok := load.Ptr.DefInst.(*ir.AggregateGEPInst); ok {
			return gep.Base
		}
	}
	return nil
}

func insertCheckBeforeCall(m *ir.Module, b *ir.BasicBlock, before ir.Instruction, addr *ir.Value, kind capability.CheckKind) {
	helper := checkHelperFor(m, kind)
	checkCall := ir.NewCall(m, ir.NewFuncRef(helper), []*ir.Value{addr}, nil, "fast")
	b.InsertBefore(before, checkCall)
}

func checkHelperFor(m *ir.Module, kind capability.CheckKind) *ir.Function {
	name := m.Name + "_" + capability.SinglePtrCheckName
	if kind == capability.ArrayCheck {
		name = m.Name + "_" + capability.ArrayPtrCheckName
	}
	if fn := m.FindFunction(name); fn != nil {
		return fn
	}
	aggType := &ir.StructType{Fields: []ir.Type{ir.I8Ptr(), ir.I64()}}
	if kind == capability.ArrayCheck {
		aggType.Fields = append(aggType.Fields, &ir.PointerType{Pointee: ir.I64()})
	}
	fn := &ir.Function{
		Name:          name,
		Params:        []*ir.Parameter{{Name: "p", Type: &ir.PointerType{Pointee: aggType}}},
		IsDeclaration: true,
		CallingConv:   "fast",
	}
	m.AddFunction(fn)
	return fn
}
