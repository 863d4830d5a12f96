package typeharmonize

import (
	"testing"

	"checkedc-tempsafety/internal/ir"
)

// Scenario C from spec §8: an ill-formed load through a single-ptr
// aggregate whose result is mistyped as the raw pointer field.
func TestIllFormedLoadRepair(t *testing.T) {
	m := ir.NewModule("t")
	i32 := &ir.IntegerType{Width: 32}
	singlePtr := &ir.SinglePtrType{Pointee: i32}
	aggType := singlePtr.AggregateType()

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")

	slot := ir.NewStackAlloc(m, fn, aggType, false)
	entry.Append(slot)

	rawPtrType := aggType.Fields[0]
	badLoad := ir.NewLoad(m, slot.Result, rawPtrType)
	entry.Append(badLoad)
	entry.SetTerminator(&ir.ReturnInst{})

	changed, err := New().Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected the module to change")
	}

	for _, inst := range entry.Instructions {
		if inst == badLoad {
			t.Fatalf("ill-formed load was not erased")
		}
	}

	var geps []*ir.AggregateGEPInst
	var loads []*ir.LoadInst
	for _, inst := range entry.Instructions {
		switch v := inst.(type) {
		case *ir.AggregateGEPInst:
			geps = append(geps, v)
		case *ir.LoadInst:
			loads = append(loads, v)
		}
	}
	if len(geps) != 1 {
		t.Fatalf("expected one AggregateGEP to field 0, got %d", len(geps))
	}
	if len(geps[0].FieldPath()) != 1 || geps[0].FieldPath()[0] != 0 {
		t.Fatalf("expected the GEP to address field 0, got %v", geps[0].FieldPath())
	}
	if len(loads) != 1 {
		t.Fatalf("expected a single repaired load (no aggregate users present), got %d", len(loads))
	}
	if !loads[0].Result.Type.Equal(rawPtrType) {
		t.Fatalf("expected the repaired load to carry the raw pointer type")
	}
}

// Scenario D from spec §8: an ill-formed load whose result feeds an
// ExtractField must also gain a whole-aggregate load, and the
// ExtractField must consume that load.
func TestIllFormedLoadRepairWithAggregateUser(t *testing.T) {
	m := ir.NewModule("t")
	i32 := &ir.IntegerType{Width: 32}
	arrPtr := &ir.ArrayPtrType{Pointee: i32}
	aggType := arrPtr.AggregateType()

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")

	slot := ir.NewStackAlloc(m, fn, aggType, false)
	entry.Append(slot)

	rawPtrType := aggType.Fields[0]
	badLoad := ir.NewLoad(m, slot.Result, rawPtrType)
	entry.Append(badLoad)

	// The front-end mistakenly feeds the raw-typed load result to an
	// ExtractField as though it held the full aggregate. NewExtractField
	// rejects a non-struct agg, so wire the operand through SetOperand,
	// the same path every later rewrite uses.
	badExtract := &ir.ExtractFieldInst{Index: 0}
	badExtract.Result = ir.NewUndef(rawPtrType)
	badExtract.SetOperand(0, badLoad.Result)
	entry.Append(badExtract)
	entry.SetTerminator(&ir.ReturnInst{})

	changed, err := New().Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected the module to change")
	}

	var loads []*ir.LoadInst
	for _, inst := range entry.Instructions {
		if v, ok := inst.(*ir.LoadInst); ok {
			loads = append(loads, v)
		}
	}
	if len(loads) != 2 {
		t.Fatalf("expected a raw-field load and a whole-aggregate load, got %d", len(loads))
	}
	var aggLoad *ir.LoadInst
	for _, l := range loads {
		if l.Result.Type.Equal(aggType) {
			aggLoad = l
		}
	}
	if aggLoad == nil {
		t.Fatalf("expected one load typed as the full aggregate")
	}
	if badExtract.Agg != aggLoad.Result {
		t.Fatalf("expected the ExtractField to consume the whole-aggregate load")
	}
}

// An ill-formed store arising from *++p on an array-ptr, whose value
// operand is mistyped as the raw pointer field.
func TestIllFormedArrayStoreRepair(t *testing.T) {
	m := ir.NewModule("t")
	i32 := &ir.IntegerType{Width: 32}
	arrPtr := &ir.ArrayPtrType{Pointee: i32}
	aggType := arrPtr.AggregateType()
	rawPtrType := aggType.Fields[0]

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")

	slot := ir.NewStackAlloc(m, fn, aggType, false)
	entry.Append(slot)

	oldAgg := ir.NewLoad(m, slot.Result, aggType)
	entry.Append(oldAgg)

	newRaw := ir.NewConstInt(0, rawPtrType)
	insert := ir.NewInsertField(m, oldAgg.Result, 0, newRaw)
	entry.Append(insert)

	// The front-end mis-observed insert's result as the raw pointer type.
	insert.Result.Type = rawPtrType

	store := ir.NewStore(m, slot.Result, insert.Result)
	entry.Append(store)

	// A load elsewhere that also (incorrectly) treats the InsertField's
	// result as an address to read through.
	otherLoad := ir.NewLoad(m, insert.Result, rawPtrType)
	entry.Append(otherLoad)
	entry.SetTerminator(&ir.ReturnInst{})

	changed, err := New().Run(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !changed {
		t.Fatalf("expected the module to change")
	}

	if !insert.Result.Type.Equal(aggType) {
		t.Fatalf("expected the InsertField's result to be retagged to the aggregate type")
	}
	if !store.Val.Type.Equal(aggType) {
		t.Fatalf("expected the store's value operand to carry the aggregate type")
	}

	var extract *ir.ExtractFieldInst
	for _, inst := range entry.Instructions {
		if e, ok := inst.(*ir.ExtractFieldInst); ok {
			extract = e
		}
	}
	if extract == nil {
		t.Fatalf("expected an ExtractField recovering the raw pointer")
	}
	if extract.Index != 0 || extract.Agg != insert.Result {
		t.Fatalf("expected the ExtractField to read field 0 of the retagged value")
	}
	if otherLoad.Ptr != extract.Result {
		t.Fatalf("expected the other load to be redirected to the extracted raw pointer")
	}
}

func TestTypeHarmonizationIdempotent(t *testing.T) {
	m := ir.NewModule("t")
	i32 := &ir.IntegerType{Width: 32}
	singlePtr := &ir.SinglePtrType{Pointee: i32}
	aggType := singlePtr.AggregateType()

	fn := &ir.Function{Name: "f"}
	m.AddFunction(fn)
	entry := fn.NewBlock(m, "entry")
	slot := ir.NewStackAlloc(m, fn, aggType, false)
	entry.Append(slot)
	rawPtrType := aggType.Fields[0]
	badLoad := ir.NewLoad(m, slot.Result, rawPtrType)
	entry.Append(badLoad)
	entry.SetTerminator(&ir.ReturnInst{})

	pass := New()
	changed1, err := pass.Run(m)
	if err != nil || !changed1 {
		t.Fatalf("expected first run to change the module, err=%v", err)
	}
	changed2, err := pass.Run(m)
	if err != nil {
		t.Fatalf("unexpected error on second run: %v", err)
	}
	if changed2 {
		t.Fatalf("expected the second run to be a no-op")
	}
}
