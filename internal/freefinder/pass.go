// Package freefinder implements the Free-Finder Analysis (C4): a
// module-level call-graph reachability analysis that conservatively
// classifies each user-defined function and call site as may-free or
// non-freeing.
package freefinder

import (
	"checkedc-tempsafety/internal/capability"
	"checkedc-tempsafety/internal/ir"
)

const passName = "free-finder"

// BuiltinWhitelist is the initial set of external symbols known to be
// non-freeing (§6).
var BuiltinWhitelist = []string{
	"malloc", "mm_alloc", "mm_array_alloc", "printf", "abort", "exit", "srand", "atoi", "atol",
}

// Pass is the C4 analysis. Unlike the rewrite passes it carries state
// across its single Run call: MayFreeFns and MayFreeCalls are the
// published results downstream passes consume (§6).
type Pass struct {
	MayFreeFns   map[*ir.Function]bool
	MayFreeCalls map[*ir.CallInst]bool
}

func New() *Pass { return &Pass{} }

func (p *Pass) Name() string { return passName }

// Run computes MayFreeFns and MayFreeCalls for m. It returns true iff
// any function was classified as may-free.
func (p *Pass) Run(m *ir.Module) (bool, error) {
	p.MayFreeFns = make(map[*ir.Function]bool)
	p.MayFreeCalls = make(map[*ir.CallInst]bool)

	whitelist := buildWhitelist(m)

	// callSitesOf records every direct call site targeting a given
	// function, so the closure step can retroactively mark call sites of
	// functions found may-free only through backward propagation.
	callSitesOf := make(map[*ir.Function][]*ir.CallInst)
	// callers[g] is the set of functions with a direct call edge into g;
	// edges into declaration-only functions and key-check helpers are
	// never recorded, per §4.4.
	callers := make(map[*ir.Function]map[*ir.Function]bool)

	for _, fn := range m.Functions {
		if fn.IsDeclaration || capability.IsCheckHelperName(fn.Name) {
			continue
		}
		for _, b := range fn.Blocks {
			for _, inst := range b.AllInstructions() {
				if !ir.HasCallEffect(inst) {
					continue
				}
				call, ok := inst.(*ir.CallInst)
				if !ok {
					continue
				}
				if !call.IsDirect() {
					p.MayFreeCalls[call] = true
					p.MayFreeFns[fn] = true
					continue
				}

				target := call.TargetFunction()
				callSitesOf[target] = append(callSitesOf[target], call)

				if !target.IsDeclaration && !capability.IsCheckHelperName(target.Name) {
					if callers[target] == nil {
						callers[target] = make(map[*ir.Function]bool)
					}
					callers[target][fn] = true
				}

				if target.IsDeclaration && !whitelist[target.Name] {
					p.MayFreeCalls[call] = true
					p.MayFreeFns[fn] = true
				}
			}
		}
	}

	worklist := make([]*ir.Function, 0, len(p.MayFreeFns))
	for f := range p.MayFreeFns {
		worklist = append(worklist, f)
	}
	for len(worklist) > 0 {
		f := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for caller := range callers[f] {
			if !p.MayFreeFns[caller] {
				p.MayFreeFns[caller] = true
				worklist = append(worklist, caller)
			}
		}
	}

	for f := range p.MayFreeFns {
		for _, call := range callSitesOf[f] {
			p.MayFreeCalls[call] = true
		}
	}

	return len(p.MayFreeFns) > 0, nil
}

func buildWhitelist(m *ir.Module) map[string]bool {
	wl := make(map[string]bool, len(BuiltinWhitelist)+4)
	for _, name := range BuiltinWhitelist {
		wl[name] = true
	}
	wl[capability.SinglePtrCheckName] = true
	wl[capability.ArrayPtrCheckName] = true
	wl[m.Name+"_"+capability.SinglePtrCheckName] = true
	wl[m.Name+"_"+capability.ArrayPtrCheckName] = true
	for name := range m.ExtraNonFreeing {
		wl[name] = true
	}
	return wl
}
