package ir

// Value is an SSA value: either the result of an instruction or a
// module-level constant. Each Value has exactly one definition; Uses
// records every operand position that reads it, maintained by the
// instruction constructors, SetOperand, and ReplaceAllUsesWith.
type Value struct {
	ID       int
	Name     string
	Type     Type
	DefBlock *BasicBlock // nil for constants and function/global references
	DefInst  Instruction // nil for constants and function/global references

	// Kind discriminates the non-instruction-result forms a Value can take.
	Kind ValueKind

	// ConstInt is populated when Kind == ConstIntValue.
	ConstInt int64
	// Global is populated when Kind == GlobalRefValue.
	Global *Global
	// Func is populated when Kind == FuncRefValue.
	Func *Function

	// GEPBase and GEPFieldPath are populated when Kind == ConstGEPValue.
	GEPBase      *Value
	GEPFieldPath []int

	Uses []*Use
}

// ValueKind distinguishes where a Value's identity comes from.
type ValueKind int

const (
	// InstResultValue is the result of an Instruction (DefInst is set).
	InstResultValue ValueKind = iota
	// ParamValue is a function parameter.
	ParamValue
	// ConstIntValue is an integer literal.
	ConstIntValue
	// GlobalRefValue is the address of a Global.
	GlobalRefValue
	// FuncRefValue names a Function directly (the callee of a direct call).
	FuncRefValue
	// UndefValue is a placeholder for storage left uninitialized.
	UndefValue
	// ConstGEPValue is a compile-time constant address computed by
	// descending a field path from a global, with no instruction and no
	// particular home block (the lock-insertion pass's global rewrite
	// produces these in place of a module-level AggregateGEP instruction).
	ConstGEPValue
)

// Use is one operand slot that reads a Value. Slot identifies which
// operand of User it occupies so ReplaceAllUsesWith can rewrite it
// in place without re-deriving the operand list.
type Use struct {
	Value *Value
	User  Instruction
	Slot  int
}

// NewConstInt builds an untracked integer constant of the given type.
// Constants are not instructions and carry no Uses bookkeeping on
// their own account; they become used once installed as an operand
// by a constructor or SetOperand, which records the Use on the operand's Value.
func NewConstInt(v int64, t Type) *Value {
	return &Value{Kind: ConstIntValue, ConstInt: v, Type: t, Name: "const"}
}

// NewUndef builds a placeholder value of type t with no definition.
func NewUndef(t Type) *Value {
	return &Value{Kind: UndefValue, Type: t, Name: "undef"}
}

// NewConstGEP builds a constant address computed by descending
// fieldPath from base (itself ordinarily a global's Ref()). resultType
// is the pointer-to-field type of the addressed element.
func NewConstGEP(base *Value, fieldPath []int, resultType Type) *Value {
	return &Value{Kind: ConstGEPValue, GEPBase: base, GEPFieldPath: fieldPath, Type: resultType, Name: base.Name + ".field"}
}

// NewGlobalRef builds the address-of-global value for g.
func NewGlobalRef(g *Global) *Value {
	return &Value{Kind: GlobalRefValue, Global: g, Type: &PointerType{Pointee: g.Type}, Name: g.Name}
}

// NewFuncRef builds the direct-callee value naming f.
func NewFuncRef(f *Function) *Value {
	return &Value{Kind: FuncRefValue, Func: f, Name: f.Name}
}

// addUse records that User reads v through its operand at Slot. It is
// called by every instruction constructor and by SetOperand on mutation.
func addUse(v *Value, user Instruction, slot int) {
	if v == nil {
		return
	}
	v.Uses = append(v.Uses, &Use{Value: v, User: user, Slot: slot})
}

func removeUse(v *Value, user Instruction, slot int) {
	if v == nil {
		return
	}
	out := v.Uses[:0]
	for _, u := range v.Uses {
		if u.User == user && u.Slot == slot {
			continue
		}
		out = append(out, u)
	}
	v.Uses = out
}

// ReplaceAllUsesWith rewrites every recorded use of old to refer to
// newVal instead, via each user's SetOperand, and transfers the Uses
// list so subsequent replacements stay accurate. old's Uses is left
// empty afterward.
func ReplaceAllUsesWith(old, newVal *Value) {
	if old == newVal {
		return
	}
	uses := old.Uses
	old.Uses = nil
	for _, u := range uses {
		u.User.SetOperand(u.Slot, newVal)
	}
}
