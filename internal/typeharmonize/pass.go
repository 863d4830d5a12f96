// Package typeharmonize implements the Type-Harmonization Pass (C3): it
// repairs load/store instructions whose value type disagrees with their
// pointer operand's pointee type, a mismatch the front-end introduces at
// certain safe-pointer dereference sites (§4.3). The pass is purely
// intra-procedural and holds no state across functions.
package typeharmonize

import (
	"checkedc-tempsafety/internal/capability"
	"checkedc-tempsafety/internal/errors"
	"checkedc-tempsafety/internal/ir"
)

const passName = "type-harmonization"

type Pass struct{}

func New() *Pass { return &Pass{} }

func (p *Pass) Name() string { return passName }

// Run repairs every ill-formed load and store in m. It reports true iff
// any instruction was rewritten.
func (p *Pass) Run(m *ir.Module) (bool, error) {
	changed := false
	for _, fn := range m.Functions {
		if fn.IsDeclaration {
			continue
		}
		c, err := runOnFunction(m, fn)
		if err != nil {
			return changed, err
		}
		if c {
			changed = true
		}
	}
	return changed, nil
}

func runOnFunction(m *ir.Module, fn *ir.Function) (bool, error) {
	changed := false
	for _, b := range fn.Blocks {
		snapshot := append([]ir.Instruction(nil), b.Instructions...)
		for _, inst := range snapshot {
			switch v := inst.(type) {
			case *ir.LoadInst:
				if aggType, ok := illFormedLoad(v); ok {
					repairLoad(m, b, v, aggType)
					changed = true
				}
			case *ir.StoreInst:
				if aggType, ok := illFormedArrayStore(v); ok {
					if err := repairStore(m, b, v, aggType); err != nil {
						return changed, err
					}
					changed = true
				}
			}
		}
	}
	return changed, nil
}

// illFormedLoad detects a load whose pointer operand points to a
// safe-pointer aggregate but whose result type is the aggregate's raw
// field type (Scenario C). It returns the aggregate type and true on a
// match.
func illFormedLoad(load *ir.LoadInst) (*ir.StructType, bool) {
	st, ok := capability.ElementTypeOfPointer(load.Ptr.Type).(*ir.StructType)
	if !ok || (len(st.Fields) != 2 && len(st.Fields) != 3) {
		return nil, false
	}
	rawField, ok := st.Fields[0].(*ir.PointerType)
	if !ok {
		return nil, false
	}
	resultRaw, ok := load.Result.Type.(*ir.PointerType)
	if !ok || !resultRaw.Equal(rawField) {
		return nil, false
	}
	return st, true
}

// repairLoad implements §4.3's ill-formed load repair.
func repairLoad(m *ir.Module, b *ir.BasicBlock, old *ir.LoadInst, aggType *ir.StructType) {
	rawFieldType := aggType.Fields[0]

	gepRaw := ir.NewAggregateGEP(m, old.Ptr, 0)
	b.InsertBefore(old, gepRaw)
	rawLoad := ir.NewLoad(m, gepRaw.Result, rawFieldType)
	b.InsertBefore(old, rawLoad)

	var aggLoad *ir.LoadInst
	needsAggregate := false
	for _, u := range old.Result.Uses {
		switch u.User.(type) {
		case *ir.ExtractFieldInst, *ir.InsertFieldInst:
			needsAggregate = true
		}
	}
	if needsAggregate {
		aggLoad = ir.NewLoad(m, old.Ptr, aggType)
		b.InsertBefore(old, aggLoad)
	}

	uses := append([]*ir.Use(nil), old.Result.Uses...)
	for _, u := range uses {
		switch u.User.(type) {
		case *ir.ExtractFieldInst, *ir.InsertFieldInst:
			u.User.SetOperand(u.Slot, aggLoad.Result)
		default:
			u.User.SetOperand(u.Slot, rawLoad.Result)
		}
	}

	b.Erase(old)
}

// illFormedArrayStore detects a store whose value operand is typed as
// the raw pointer field of an array-ptr aggregate while its pointer
// operand points to that aggregate (arising from *++p/*--p lowering,
// which only exists for array-ptr).
func illFormedArrayStore(store *ir.StoreInst) (*ir.StructType, bool) {
	st, ok := capability.ElementTypeOfPointer(store.Ptr.Type).(*ir.StructType)
	if !ok || len(st.Fields) != 3 {
		return nil, false
	}
	rawField, ok := st.Fields[0].(*ir.PointerType)
	if !ok {
		return nil, false
	}
	valRaw, ok := store.Val.Type.(*ir.PointerType)
	if !ok || !valRaw.Equal(rawField) {
		return nil, false
	}
	return st, true
}

// repairStore implements §4.3's ill-formed store repair.
func repairStore(m *ir.Module, b *ir.BasicBlock, store *ir.StoreInst, aggType *ir.StructType) error {
	insertField, ok := store.Val.DefInst.(*ir.InsertFieldInst)
	if !ok {
		return errors.NewPreconditionError(passName, errors.ErrStoreValueNotInsertField,
			"ill-formed store's value operand must be produced by an InsertField", store.String())
	}
	_ = insertField

	// The front-end mis-observed the InsertField's result type; it is
	// really the aggregate the store's pointer operand points to.
	store.Val.Type = aggType

	extractRaw := ir.NewExtractField(m, store.Val, 0)
	b.InsertBefore(store, extractRaw)

	uses := append([]*ir.Use(nil), store.Val.Uses...)
	for _, u := range uses {
		if u.User == store || u.User == extractRaw {
			continue
		}
		if _, isLoad := u.User.(*ir.LoadInst); isLoad {
			u.User.SetOperand(u.Slot, extractRaw.Result)
		}
	}

	return nil
}
