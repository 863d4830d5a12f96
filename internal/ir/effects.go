package ir

// Effect describes one side effect an instruction may have. The pass
// suite does not need a rich effect lattice (no alias analysis, per
// spec §1 Non-goals); it only needs to tell memory writes and calls
// apart from pure computation for the check-removal dataflow and the
// free-finder's call-site scan.
type Effect interface {
	EffectKind() string
}

// MemoryEffect records a read or write through a pointer operand.
type MemoryEffect struct {
	Kind string // "read" or "write"
}

func (m *MemoryEffect) EffectKind() string { return "memory" }

// CallEffect marks an instruction as a call; may-free classification is
// layered on top by the free-finder and is not part of this effect.
type CallEffect struct{}

func (c *CallEffect) EffectKind() string { return "call" }

// PureEffect marks an instruction with no observable side effect.
type PureEffect struct{}

func (p *PureEffect) EffectKind() string { return "pure" }

// HasCallEffect reports whether inst declares a CallEffect, the
// dispatch filter check-removal and free-finder both use before
// narrowing to a concrete *CallInst.
func HasCallEffect(inst Instruction) bool {
	for _, e := range inst.GetEffects() {
		if _, ok := e.(*CallEffect); ok {
			return true
		}
	}
	return false
}

// IsMemoryWrite reports whether inst declares a MemoryEffect of kind
// "write".
func IsMemoryWrite(inst Instruction) bool {
	for _, e := range inst.GetEffects() {
		if m, ok := e.(*MemoryEffect); ok && m.Kind == "write" {
			return true
		}
	}
	return false
}

func (i *StackAllocInst) GetEffects() []Effect { return []Effect{&PureEffect{}} }
func (i *LoadInst) GetEffects() []Effect       { return []Effect{&MemoryEffect{Kind: "read"}} }
func (i *StoreInst) GetEffects() []Effect      { return []Effect{&MemoryEffect{Kind: "write"}} }
func (i *AggregateGEPInst) GetEffects() []Effect { return []Effect{&PureEffect{}} }
func (i *ExtractFieldInst) GetEffects() []Effect { return []Effect{&PureEffect{}} }
func (i *InsertFieldInst) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (i *CallInst) GetEffects() []Effect         { return []Effect{&CallEffect{}} }
func (i *PointerCastInst) GetEffects() []Effect  { return []Effect{&PureEffect{}} }
func (i *ReturnInst) GetEffects() []Effect       { return []Effect{&PureEffect{}} }
func (i *BranchInst) GetEffects() []Effect       { return []Effect{&PureEffect{}} }
func (i *JumpInst) GetEffects() []Effect         { return []Effect{&PureEffect{}} }
