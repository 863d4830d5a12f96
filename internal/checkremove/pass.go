// Package checkremove implements the Check-Removal Optimization (C6):
// an intra-procedural dataflow pass that eliminates key-check calls
// already dominated, on every acyclic path from entry, by an identical
// check with no intervening store or may-free call. It optionally
// hoists checks to call sites first (§4.6 "add-check-before-call").
package checkremove

import (
	"checkedc-tempsafety/internal/blocksplit"
	"checkedc-tempsafety/internal/capability"
	"checkedc-tempsafety/internal/errors"
	"checkedc-tempsafety/internal/ir"
)

const passName = "check-removal"

// addrSet is the dataflow lattice element: the set of aggregate
// addresses known checked at a program point.
type addrSet map[*ir.Value]bool

func cloneSet(s addrSet) addrSet {
	out := make(addrSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersect(sets []addrSet) addrSet {
	if len(sets) == 0 {
		return addrSet{}
	}
	out := cloneSet(sets[0])
	for _, s := range sets[1:] {
		for k := range out {
			if !s[k] {
				delete(out, k)
			}
		}
	}
	return out
}

func setsEqual(a, b addrSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// Pass is the C6 optimization. It depends on a completed Block-Splitter
// pass (§6: Check-Removal requires Block-Splitter).
type Pass struct {
	blockSplit   *blocksplit.Pass
	HoistMode    bool
	RemovedCount int
}

// New builds a check-remover that consumes bs's MayFreeBBs. If hoist is
// true, Run first inserts pre-call checks at safe-pointer call-argument
// sites before running the dataflow analysis.
func New(bs *blocksplit.Pass, hoist bool) *Pass {
	return &Pass{blockSplit: bs, HoistMode: hoist}
}

func (p *Pass) Name() string { return passName }

// Run eliminates redundant key-check calls in m. It reports true iff
// any check was removed (hoisted insertions alone do not set this,
// matching §6's "returns true iff any were removed" for the erasure step).
func (p *Pass) Run(m *ir.Module) (bool, error) {
	if p.blockSplit == nil || p.blockSplit.MayFreeBBs == nil {
		return false, errors.NewMissingDependencyError(passName, "block-splitter")
	}

	removedAny := false
	for _, fn := range m.Functions {
		if fn.IsDeclaration {
			continue
		}
		if p.HoistMode {
			insertHoistedChecks(m, fn)
		}
		if removeRedundantChecks(fn, p.blockSplit.MayFreeBBs, &p.RemovedCount) {
			removedAny = true
		}
	}
	return removedAny, nil
}

func checkArgAddress(call *ir.CallInst) *ir.Value {
	if len(call.Args) == 0 {
		return nil
	}
	return stripCasts(call.Args[0])
}

func storeDestAddress(store *ir.StoreInst) *ir.Value {
	return stripCasts(store.Ptr)
}

func stripCasts(v *ir.Value) *ir.Value {
	for v != nil {
		cast, ok := v.DefInst.(*ir.PointerCastInst)
		if !ok {
			return v
		}
		v = cast.Src
	}
	return v
}

// transfer applies B's per-instruction effect to in, producing BBOut[B],
// dispatching on each instruction's declared effects (§4.6's "a check
// call adds its argument... a Store removes its destination address")
// rather than a fixed list of concrete instruction types.
func transfer(b *ir.BasicBlock, in addrSet) addrSet {
	out := cloneSet(in)
	for _, inst := range b.AllInstructions() {
		if ir.HasCallEffect(inst) {
			if call, ok := inst.(*ir.CallInst); ok && capability.IsCheckCall(call) {
				if addr := checkArgAddress(call); addr != nil {
					out[addr] = true
				}
			}
		}
		if ir.IsMemoryWrite(inst) {
			if store, ok := inst.(*ir.StoreInst); ok {
				delete(out, storeDestAddress(store))
			}
		}
	}
	return out
}

// runDataflow computes BBIn for every block of fn, per §4.6's
// propagation rules, iterating to a fixpoint. A bound well above any
// realistic block count guards against a malformed CFG that would
// otherwise loop forever; a converged analysis always exits earlier.
func runDataflow(fn *ir.Function, mayFreeBBs map[*ir.BasicBlock]bool) map[*ir.BasicBlock]addrSet {
	preds := ir.Predecessors(fn)
	bbIn := make(map[*ir.BasicBlock]addrSet)
	bbOut := make(map[*ir.BasicBlock]addrSet)
	visited := make(map[*ir.BasicBlock]bool)
	entry := fn.Entry()

	maxPasses := 4*len(fn.Blocks) + 4
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for _, b := range fn.Blocks {
			var in addrSet
			switch {
			case b == entry:
				in = addrSet{}
			case mayFreeBBs[b]:
				in = addrSet{}
			default:
				in = meetPredecessors(b, preds[b], bbOut, visited, mayFreeBBs)
			}

			var out addrSet
			if mayFreeBBs[b] {
				out = addrSet{}
			} else {
				out = transfer(b, in)
			}

			if !setsEqual(bbIn[b], in) || !setsEqual(bbOut[b], out) {
				changed = true
			}
			bbIn[b] = in
			bbOut[b] = out
			visited[b] = true
		}
		if !changed {
			break
		}
	}
	return bbIn
}

// meetPredecessors computes the intersection of preds' BBOut, forcing
// the empty set if any predecessor is a may-free block. A predecessor
// whose BBOut has not been computed yet (only possible before the first
// pass reaches it) is left out of the intersection, treated as
// unconstrained rather than as a hard zero; later passes include it, so
// a block's set can only shrink toward the fixpoint through loops.
func meetPredecessors(b *ir.BasicBlock, preds []*ir.BasicBlock, bbOut map[*ir.BasicBlock]addrSet, visited map[*ir.BasicBlock]bool, mayFreeBBs map[*ir.BasicBlock]bool) addrSet {
	for _, pr := range preds {
		if mayFreeBBs[pr] {
			return addrSet{}
		}
	}
	var sets []addrSet
	for _, pr := range preds {
		if !visited[pr] {
			continue
		}
		sets = append(sets, bbOut[pr])
	}
	return intersect(sets)
}

// removeRedundantChecks re-walks fn with BBIn seeding each block's
// CheckedPtrs, schedules every already-checked check call for erasure,
// and erases them in one batch.
func removeRedundantChecks(fn *ir.Function, mayFreeBBs map[*ir.BasicBlock]bool, removedCount *int) bool {
	bbIn := runDataflow(fn, mayFreeBBs)

	var toErase []*ir.CallInst
	for _, b := range fn.Blocks {
		checked := cloneSet(bbIn[b])
		for _, inst := range b.AllInstructions() {
			if ir.HasCallEffect(inst) {
				if call, ok := inst.(*ir.CallInst); ok && capability.IsCheckCall(call) {
					if addr := checkArgAddress(call); addr != nil {
						if checked[addr] {
							toErase = append(toErase, call)
						} else {
							checked[addr] = true
						}
					}
				}
			}
			if ir.IsMemoryWrite(inst) {
				if store, ok := inst.(*ir.StoreInst); ok {
					delete(checked, storeDestAddress(store))
				}
			}
		}
	}

	if len(toErase) == 0 {
		return false
	}
	for _, call := range toErase {
		b := call.Block
		if b == nil {
			continue
		}
		b.Erase(call)
		*removedCount++
	}
	return true
}
