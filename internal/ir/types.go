package ir

import (
	"fmt"
	"strings"
)

// Type is the tagged-variant type system of the host IR. Instances are
// value types: two Type values describe the same type iff Equal reports
// true, regardless of pointer identity.
type Type interface {
	String() string
	Equal(other Type) bool
}

// IntegerType is a fixed-width integer, e.g. i1, i8, i64.
type IntegerType struct {
	Width int
}

func (t *IntegerType) String() string { return fmt.Sprintf("i%d", t.Width) }

func (t *IntegerType) Equal(other Type) bool {
	o, ok := other.(*IntegerType)
	return ok && o.Width == t.Width
}

// PointerType is a raw pointer into an address space.
type PointerType struct {
	Pointee      Type
	AddressSpace int
}

func (t *PointerType) String() string {
	if t.AddressSpace != 0 {
		return fmt.Sprintf("%s addrspace(%d)*", t.Pointee.String(), t.AddressSpace)
	}
	return t.Pointee.String() + "*"
}

func (t *PointerType) Equal(other Type) bool {
	o, ok := other.(*PointerType)
	return ok && o.AddressSpace == t.AddressSpace && typesEqual(o.Pointee, t.Pointee)
}

// StructType is an ordered aggregate of field types.
type StructType struct {
	Fields []Type
	// Align, when non-zero, overrides the natural alignment implied by
	// the field layout. Lock-Insertion sets this to 16 on the
	// {pad, lock, safe-pointer} aggregates it synthesizes; its plain
	// {lock, payload} layout leaves it zero.
	Align int
}

func (t *StructType) String() string {
	parts := make([]string, len(t.Fields))
	for i, f := range t.Fields {
		parts[i] = f.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func (t *StructType) Equal(other Type) bool {
	o, ok := other.(*StructType)
	if !ok || len(o.Fields) != len(t.Fields) {
		return false
	}
	for i := range t.Fields {
		if !typesEqual(t.Fields[i], o.Fields[i]) {
			return false
		}
	}
	return true
}

// SinglePtrType is the safe-pointer kind backed by { raw, key }.
type SinglePtrType struct {
	Pointee Type
}

func (t *SinglePtrType) String() string { return fmt.Sprintf("single_ptr<%s>", t.Pointee.String()) }

func (t *SinglePtrType) Equal(other Type) bool {
	o, ok := other.(*SinglePtrType)
	return ok && typesEqual(o.Pointee, t.Pointee)
}

// AggregateType returns the struct layout the code generator gives a
// SinglePtr value: { raw: Pointer(pointee), key: i64 }.
func (t *SinglePtrType) AggregateType() *StructType {
	return &StructType{Fields: []Type{&PointerType{Pointee: t.Pointee}, &IntegerType{Width: 64}}}
}

// ArrayPtrType is the safe-pointer kind backed by { raw, key, keylock }.
type ArrayPtrType struct {
	Pointee Type
}

func (t *ArrayPtrType) String() string { return fmt.Sprintf("array_ptr<%s>", t.Pointee.String()) }

func (t *ArrayPtrType) Equal(other Type) bool {
	o, ok := other.(*ArrayPtrType)
	return ok && typesEqual(o.Pointee, t.Pointee)
}

// AggregateType returns the struct layout the code generator gives an
// ArrayPtr value: { raw: Pointer(pointee), key: i64, keylock: Pointer(i64) }.
func (t *ArrayPtrType) AggregateType() *StructType {
	return &StructType{Fields: []Type{
		&PointerType{Pointee: t.Pointee},
		&IntegerType{Width: 64},
		&PointerType{Pointee: &IntegerType{Width: 64}},
	}}
}

func typesEqual(a, b Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(b)
}

// I64 is the canonical 64-bit integer type used for lock words and keys.
func I64() *IntegerType { return &IntegerType{Width: 64} }

// I8Ptr is the canonical opaque byte pointer used in check-helper
// signatures (the "raw" field of a lowered safe pointer).
func I8Ptr() *PointerType { return &PointerType{Pointee: &IntegerType{Width: 8}} }
