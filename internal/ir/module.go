package ir

import "fmt"

// Linkage mirrors the handful of LLVM linkage kinds the lock-insertion
// pass cares about.
type Linkage int

const (
	LinkageExternal Linkage = iota
	LinkageInternal
	LinkageCommon
)

func (l Linkage) String() string {
	switch l {
	case LinkageExternal:
		return "external"
	case LinkageInternal:
		return "internal"
	case LinkageCommon:
		return "common"
	default:
		return "unknown"
	}
}

// Initializer is a compile-time constant usable as a Global's initial
// value. It is deliberately separate from Value: globals are initialized
// before any SSA value numbering exists for them.
type Initializer interface {
	InitType() Type
	String() string
}

// IntInit is an integer literal initializer.
type IntInit struct {
	Val int64
	Typ Type
}

func (c *IntInit) InitType() Type  { return c.Typ }
func (c *IntInit) String() string  { return fmt.Sprintf("%d", c.Val) }

// StructInit is an aggregate initializer, field-ordered to match Typ.
type StructInit struct {
	Fields []Initializer
	Typ    Type
}

func (c *StructInit) InitType() Type { return c.Typ }
func (c *StructInit) String() string {
	s := "{ "
	for i, f := range c.Fields {
		if i > 0 {
			s += ", "
		}
		s += f.String()
	}
	return s + " }"
}

// GlobalAddrInit is the address of another global (e.g. &L for a keylock).
type GlobalAddrInit struct {
	Target *Global
}

func (c *GlobalAddrInit) InitType() Type { return &PointerType{Pointee: c.Target.Type} }
func (c *GlobalAddrInit) String() string { return "&" + c.Target.Name }

// UndefInit marks storage with no initializer.
type UndefInit struct {
	Typ Type
}

func (c *UndefInit) InitType() Type { return c.Typ }
func (c *UndefInit) String() string { return "undef" }

// Global is a module-scope named storage location.
type Global struct {
	Name                  string
	Type                  Type // type of the stored object, not of its address
	Constant              bool
	Linkage               Linkage
	AddressSpace          int
	ThreadLocal           bool
	ExternallyInitialized bool
	Initializer           Initializer // nil if the global has none
	MultiQualified        bool
	Align                 int

	ref *Value // memoized canonical address-of-global value, see Ref
}

func (g *Global) HasInitializer() bool { return g.Initializer != nil }

// IsMultiQualified reports whether this global carries the multi-qual
// storage qualifier.
func (g *Global) IsMultiQualified() bool { return g.MultiQualified }

// Ref returns the single canonical Value naming the address of g. Every
// instruction that refers to g shares this same Value, so its Uses list
// is authoritative for "every use of this global" and
// ReplaceAllUsesWith(g.Ref(), x) retargets them all at once.
func (g *Global) Ref() *Value {
	if g.ref == nil {
		g.ref = NewGlobalRef(g)
	}
	return g.ref
}

// Parameter is a function formal argument; Val is the SSA value callers
// bind to it on entry.
type Parameter struct {
	Name string
	Type Type
	Val  *Value
}

// Function is a directed graph of basic blocks with a distinguished
// entry block (Blocks[0]), or a bodiless declaration.
type Function struct {
	Name          string
	Params        []*Parameter
	ReturnType    Type
	Blocks        []*BasicBlock
	IsDeclaration bool
	CallingConv   string
}

func (f *Function) Entry() *BasicBlock {
	if len(f.Blocks) == 0 {
		return nil
	}
	return f.Blocks[0]
}

func (f *Function) NewBlock(m *Module, label string) *BasicBlock {
	b := &BasicBlock{Label: fmt.Sprintf("%s.%d", label, m.nextBlockID()), Parent: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// InsertBlockAfter splices a freshly built block into f.Blocks
// immediately after after, preserving the relative order of the rest.
func (f *Function) InsertBlockAfter(after, next *BasicBlock) {
	for i, b := range f.Blocks {
		if b == after {
			f.Blocks = append(f.Blocks[:i+1], append([]*BasicBlock{next}, f.Blocks[i+1:]...)...)
			return
		}
	}
	f.Blocks = append(f.Blocks, next)
}

// BasicBlock is an ordered sequence of non-terminator instructions
// followed by exactly one Terminator.
type BasicBlock struct {
	Label        string
	Parent       *Function
	Instructions []Instruction
	Terminator   Terminator
}

// AllInstructions returns the block's body followed by its terminator,
// for callers that want to walk every instruction uniformly.
func (b *BasicBlock) AllInstructions() []Instruction {
	if b.Terminator == nil {
		return b.Instructions
	}
	out := make([]Instruction, 0, len(b.Instructions)+1)
	out = append(out, b.Instructions...)
	return append(out, b.Terminator)
}

// Append places inst at the end of the body, before the terminator.
func (b *BasicBlock) Append(inst Instruction) {
	inst.SetBlock(b)
	b.Instructions = append(b.Instructions, inst)
}

// PushFront places inst at the start of the body.
func (b *BasicBlock) PushFront(inst Instruction) {
	inst.SetBlock(b)
	b.Instructions = append([]Instruction{inst}, b.Instructions...)
}

// InsertBefore splices inst immediately before mark, which must
// already be in b.Instructions.
func (b *BasicBlock) InsertBefore(mark, inst Instruction) {
	inst.SetBlock(b)
	for i, cur := range b.Instructions {
		if cur == mark {
			b.Instructions = append(b.Instructions[:i], append([]Instruction{inst}, b.Instructions[i:]...)...)
			return
		}
	}
	b.Instructions = append(b.Instructions, inst)
}

// InsertAfter splices inst immediately after mark, which must already
// be in b.Instructions.
func (b *BasicBlock) InsertAfter(mark, inst Instruction) {
	inst.SetBlock(b)
	for i, cur := range b.Instructions {
		if cur == mark {
			rest := append([]Instruction{inst}, b.Instructions[i+1:]...)
			b.Instructions = append(b.Instructions[:i+1], rest...)
			return
		}
	}
	b.Instructions = append(b.Instructions, inst)
}

// Erase drops inst from the block and removes the uses it makes of its
// own operands. It does not touch inst's own Result.Uses: callers must
// have already redirected those (ReplaceAllUsesWith) or proven the
// result is dead.
func (b *BasicBlock) Erase(inst Instruction) {
	for slot, op := range inst.GetOperands() {
		removeUse(op, inst, slot)
	}
	out := b.Instructions[:0]
	for _, cur := range b.Instructions {
		if cur == inst {
			continue
		}
		out = append(out, cur)
	}
	b.Instructions = out
}

// SetTerminator installs t as the block's terminator.
func (b *BasicBlock) SetTerminator(t Terminator) {
	t.SetBlock(b)
	b.Terminator = t
}

// FirstNonTerminator returns the first instruction of the block's body,
// or nil if the block is empty (terminator-only).
func (b *BasicBlock) FirstNonTerminator() Instruction {
	if len(b.Instructions) == 0 {
		return nil
	}
	return b.Instructions[0]
}

// Module is a container of globals and functions, the unit every pass
// in the pipeline rewrites in place.
type Module struct {
	Name      string
	Functions []*Function
	Globals   []*Global

	valueID int
	blockID int
	instID  int

	// ExtraNonFreeing extends the free-finder's non-freeing whitelist
	// beyond the built-in entries. The free-finder reads it before its
	// first call-site scan; see internal/freefinder.
	ExtraNonFreeing map[string]bool
}

func NewModule(name string) *Module {
	return &Module{Name: name, ExtraNonFreeing: make(map[string]bool)}
}

func (m *Module) nextValueID() int { m.valueID++; return m.valueID }
func (m *Module) nextBlockID() int { m.blockID++; return m.blockID }
func (m *Module) nextInstID() int  { m.instID++; return m.instID }

// FindFunction returns the function named name, or nil.
func (m *Module) FindFunction(name string) *Function {
	for _, f := range m.Functions {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// AddFunction appends f to the module and returns it.
func (m *Module) AddFunction(f *Function) *Function {
	m.Functions = append(m.Functions, f)
	return f
}

// AddGlobal appends g to the module and returns it.
func (m *Module) AddGlobal(g *Global) *Global {
	m.Globals = append(m.Globals, g)
	return g
}

// RemoveGlobal drops g from the module's global list.
func (m *Module) RemoveGlobal(g *Global) {
	out := m.Globals[:0]
	for _, cur := range m.Globals {
		if cur == g {
			continue
		}
		out = append(out, cur)
	}
	m.Globals = out
}
